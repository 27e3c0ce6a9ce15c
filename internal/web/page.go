package web

import (
	"html/template"

	"github.com/cafe/cafe/internal/coffee"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Coffee Cart</title>
</head>
<body>
<h1>Coffee Cart</h1>
<p>Served by {{.Host}}</p>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="{{.ContextPath}}/coffees">
<label>Name <input type="text" name="name" value="{{.Name}}"></label>
<label>Price <input type="text" name="price" value="{{.Price}}"></label>
<button type="submit">Add</button>
</form>
{{if .Coffees}}
<table>
<tr><th>ID</th><th>Name</th><th>Price</th><th></th></tr>
{{range .Coffees}}
<tr>
<td>{{.ID}}</td><td>{{.Name}}</td><td>{{.Price}}</td>
<td><form method="post" action="{{$.ContextPath}}/coffees/{{.ID}}/delete"><button type="submit">Remove</button></form></td>
</tr>
{{end}}
</table>
{{else}}
<p>No coffees yet.</p>
{{end}}
</body>
</html>
`))

type pageData struct {
	Host        string
	ContextPath string
	Name        string
	Price       string
	Coffees     []coffee.Coffee
	Error       string
}

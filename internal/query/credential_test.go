package query

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestConnectionString(t *testing.T) {
	u, err := url.Parse(connectionString("myserver.database.windows.net", "cafe db"))
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "myserver.database.windows.net:1433", u.Host)

	q := u.Query()
	assert.Equal(t, "cafe db", q.Get("database"))
	assert.Equal(t, "true", q.Get("encrypt"))
	assert.Equal(t, "false", q.Get("TrustServerCertificate"))
	assert.Equal(t, "30", q.Get("connection timeout"))
}

func TestOpenerPropagatesCredentialFailure(t *testing.T) {
	noCredential := errors.New("no credential available")
	open := NewOpener(func(ctx context.Context) (oauth2.TokenSource, error) {
		return nil, noCredential
	})

	_, err := open(context.Background(), "myserver.database.windows.net", "cafe")
	assert.ErrorIs(t, err, noCredential)
}

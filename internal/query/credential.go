package query

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	mssql "github.com/microsoft/go-mssqldb"
	"golang.org/x/oauth2"
)

const (
	sqlScope = "https://database.windows.net/.default"
	sqlPort  = "1433"
)

// CredentialResolver supplies the access tokens used to sign in to the
// database.
type CredentialResolver func(ctx context.Context) (oauth2.TokenSource, error)

// DefaultCredential resolves tokens through the Azure default credential
// chain (environment, workload identity, managed identity, Azure CLI, ...).
func DefaultCredential(ctx context.Context) (oauth2.TokenSource, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create default azure credential: %w", err)
	}
	return oauth2.ReuseTokenSource(nil, &azureTokenSource{ctx: ctx, cred: cred}), nil
}

type azureTokenSource struct {
	ctx  context.Context
	cred azcore.TokenCredential
}

func (s *azureTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.cred.GetToken(s.ctx, policy.TokenRequestOptions{Scopes: []string{sqlScope}})
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: token.Token,
		TokenType:   "Bearer",
		Expiry:      token.ExpiresOn,
	}, nil
}

// NewOpener returns an Opener that signs in with tokens from resolve over an
// encrypted connection.
func NewOpener(resolve CredentialResolver) Opener {
	return func(ctx context.Context, server, database string) (*sql.DB, error) {
		tokens, err := resolve(ctx)
		if err != nil {
			return nil, err
		}

		connector, err := mssql.NewAccessTokenConnector(connectionString(server, database), func() (string, error) {
			token, err := tokens.Token()
			if err != nil {
				return "", err
			}
			return token.AccessToken, nil
		})
		if err != nil {
			return nil, err
		}

		db := sql.OpenDB(connector)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}
}

func connectionString(server, database string) string {
	query := url.Values{}
	query.Set("database", database)
	query.Set("encrypt", "true")
	query.Set("TrustServerCertificate", "false")
	query.Set("connection timeout", "30")

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(server, sqlPort),
		RawQuery: query.Encode(),
	}
	return u.String()
}

package ports

import (
	"context"

	"github.com/bnema/token-pool-router/internal/domain"
)

type CredentialStore interface {
	Get(ctx context.Context, ref string) (domain.Credential, error)
	Put(ctx context.Context, ref string, credential domain.Credential) error
	Delete(ctx context.Context, ref string) error
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
	"gopkg.in/yaml.v3"
)

// ClientFile is the YAML document read by ImportClients.
//
//	clients:
//	  - id: web
//	    secret: s3cret
//	    redirect_uris: [https://app.example/callback]
//	    grant_types: [authorization_code, refresh_token]
//	    scopes: [read, write]
//	    access_token_ttl: 1h
type ClientFile struct {
	Clients []ClientSpec `yaml:"clients"`
}

type ClientSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Secret is hashed before storage. SecretHash takes an already hashed
	// value instead. Neither makes the client public.
	Secret     string `yaml:"secret"`
	SecretHash string `yaml:"secret_hash"`

	RedirectURIs []string `yaml:"redirect_uris"`
	GrantTypes   []string `yaml:"grant_types"`
	Scopes       []string `yaml:"scopes"`

	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

var ErrInvalidClientSpec = errors.New("invalid client definition")

// ToClient validates the spec and converts it, hashing the plain secret.
func (s ClientSpec) ToClient(now time.Time) (domain.Client, error) {
	if s.ID == "" {
		return domain.Client{}, fmt.Errorf("%w: id is required", ErrInvalidClientSpec)
	}
	if s.Secret != "" && s.SecretHash != "" {
		return domain.Client{}, fmt.Errorf("%w: %s: secret and secret_hash are exclusive", ErrInvalidClientSpec, s.ID)
	}
	if len(s.GrantTypes) == 0 {
		return domain.Client{}, fmt.Errorf("%w: %s: at least one grant type is required", ErrInvalidClientSpec, s.ID)
	}

	grants := make([]domain.GrantType, 0, len(s.GrantTypes))
	needsRedirect := false
	for _, raw := range s.GrantTypes {
		gt, err := domain.ParseGrantType(raw)
		if err != nil {
			return domain.Client{}, fmt.Errorf("%w: %s: %v", ErrInvalidClientSpec, s.ID, err)
		}
		if gt == domain.GrantAuthorizationCode || gt == domain.GrantImplicit {
			needsRedirect = true
		}
		grants = append(grants, gt)
	}
	if needsRedirect && len(s.RedirectURIs) == 0 {
		return domain.Client{}, fmt.Errorf("%w: %s: redirect_uris are required for browser grants", ErrInvalidClientSpec, s.ID)
	}

	hash := s.SecretHash
	if s.Secret != "" {
		var err error
		if hash, err = cryptox.HashPassword(s.Secret); err != nil {
			return domain.Client{}, fmt.Errorf("hash secret of %s: %w", s.ID, err)
		}
	}

	name := s.Name
	if name == "" {
		name = s.ID
	}

	return domain.Client{
		ID:              domain.ClientID(s.ID),
		Name:            name,
		SecretHash:      hash,
		RedirectURIs:    s.RedirectURIs,
		GrantTypes:      grants,
		Scopes:          domain.ScopesFromStrings(s.Scopes),
		AccessTokenTTL:  s.AccessTokenTTL,
		RefreshTokenTTL: s.RefreshTokenTTL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ImportClients upserts every client in the YAML document in one
// transaction. Nothing is written when any definition is invalid.
func ImportClients(ctx context.Context, st store.Store, r io.Reader, now time.Time) (int, error) {
	clients, err := importClients(ctx, st, r, now)
	return len(clients), err
}

// ImportClientsFile is ImportClients on a file path.
func ImportClientsFile(ctx context.Context, st store.Store, path string, now time.Time) (int, error) {
	clients, err := importClientsFile(ctx, st, path, now)
	return len(clients), err
}

func importClientsFile(ctx context.Context, st store.Store, path string, now time.Time) ([]domain.Client, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return importClients(ctx, st, f, now)
}

func importClients(ctx context.Context, st store.Store, r io.Reader, now time.Time) ([]domain.Client, error) {
	var file ClientFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode clients: %w", err)
	}

	clients := make([]domain.Client, 0, len(file.Clients))
	seen := make(map[string]struct{}, len(file.Clients))
	for _, spec := range file.Clients {
		if _, dup := seen[spec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidClientSpec, spec.ID)
		}
		seen[spec.ID] = struct{}{}

		c, err := spec.ToClient(now)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}

	err := st.WithTx(ctx, func(tx store.Tx) error {
		for _, c := range clients {
			if err := tx.Clients().UpsertClient(ctx, c); err != nil {
				return fmt.Errorf("upsert client %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clients, nil
}

package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"alchemist/internal/domain"
	"alchemist/internal/engine/auth"
	"alchemist/internal/events"
	"alchemist/internal/repo"
)

const apiKeyPrefix = "alc_"

// CreateAPIKey mints a key for actorID. The plaintext secret is returned once and only its hash
// is stored.
func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string, perms []string, createdBy string) (domain.APIKey, string, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return domain.APIKey{}, "", domain.InvalidArgument("actor_id", "is required")
	}
	for _, p := range perms {
		if !auth.Known(p) {
			return domain.APIKey{}, "", domain.InvalidArgument("permissions", fmt.Sprintf("unknown permission %q", p))
		}
	}
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return domain.APIKey{}, "", err
	}
	secret := apiKeyPrefix + hex.EncodeToString(raw)
	key := domain.APIKey{
		ID:          uuid.NewString(),
		ActorID:     actorID,
		Name:        strings.TrimSpace(name),
		KeyHash:     repo.HashAPIKey(secret),
		Permissions: auth.Normalize(perms),
		CreatedAt:   e.timestamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
		return domain.APIKey{}, "", fmt.Errorf("insert api key: %w", err)
	}
	if err := e.eventWriter().Append(ctx, tx, events.APIKeyCreated, "api_key", key.ID, actorOrDefault(createdBy), events.EventPayload{
		"actor_id":    key.ActorID,
		"permissions": key.Permissions,
	}); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, secret, nil
}

// RevokeAPIKey deletes a key by ID.
func (e Engine) RevokeAPIKey(ctx context.Context, id, revokedBy string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteAPIKey(ctx, tx, id); err != nil {
		return err
	}
	if err := e.eventWriter().Append(ctx, tx, events.APIKeyRevoked, "api_key", id, actorOrDefault(revokedBy), nil); err != nil {
		return err
	}
	return tx.Commit()
}

// APIKeys lists keys, optionally for one actor.
func (e Engine) APIKeys(ctx context.Context, actorID string) ([]domain.APIKey, error) {
	return e.Repo.ListAPIKeys(ctx, actorID)
}

package services

import (
	"context"
	"strings"

	"returnsdesk/internal/config"
	"returnsdesk/internal/models"
	"returnsdesk/internal/observability"
	contextutils "returnsdesk/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

type directoryEntry struct {
	hash []byte
	role models.Role
}

// StaticDirectory is a UserDirectory backed by the auth.users config list
type StaticDirectory struct {
	users     map[string]directoryEntry
	dummyHash []byte
}

// NewStaticDirectory hashes plaintext entries with the default bcrypt cost
func NewStaticDirectory(entries []config.UserEntry) (*StaticDirectory, error) {
	return newStaticDirectory(entries, bcrypt.DefaultCost)
}

func newStaticDirectory(entries []config.UserEntry, cost int) (*StaticDirectory, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("returnsdesk-dummy-password"), cost)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create dummy hash")
	}

	d := &StaticDirectory{users: make(map[string]directoryEntry, len(entries)), dummyHash: dummy}
	for i, e := range entries {
		username := strings.TrimSpace(e.Username)
		if username == "" {
			return nil, contextutils.ErrorWithContextf("auth.users[%d]: username is required", i)
		}
		if _, dup := d.users[username]; dup {
			return nil, contextutils.ErrorWithContextf("auth.users[%d]: duplicate username %q", i, username)
		}
		role := models.Role(e.Role)
		if !role.Valid() {
			return nil, contextutils.ErrorWithContextf("auth.users[%d]: unknown role %q", i, e.Role)
		}

		var hash []byte
		switch {
		case e.PasswordHash != "":
			if _, err := bcrypt.Cost([]byte(e.PasswordHash)); err != nil {
				return nil, contextutils.WrapErrorf(err, "auth.users[%d]: invalid password_hash", i)
			}
			hash = []byte(e.PasswordHash)
		case e.Password != "":
			hash, err = bcrypt.GenerateFromPassword([]byte(e.Password), cost)
			if err != nil {
				return nil, contextutils.WrapErrorf(err, "auth.users[%d]: failed to hash password", i)
			}
		default:
			return nil, contextutils.ErrorWithContextf("auth.users[%d]: password or password_hash is required", i)
		}

		d.users[username] = directoryEntry{hash: hash, role: role}
	}
	return d, nil
}

// Verify checks the password and returns the user's role
func (d *StaticDirectory) Verify(ctx context.Context, username, password string) (models.Role, bool) {
	_, span := observability.TraceAuthFunction(ctx, "verify", attribute.String("user.username", username))
	defer span.End()

	entry, ok := d.users[username]
	if !ok {
		// Keep the timing of unknown users close to wrong passwords
		_ = bcrypt.CompareHashAndPassword(d.dummyHash, []byte(password))
		return "", false
	}
	if err := bcrypt.CompareHashAndPassword(entry.hash, []byte(password)); err != nil {
		return "", false
	}
	return entry.role, true
}


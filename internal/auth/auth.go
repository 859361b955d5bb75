package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// RoleQueryReader may ask questions and read the schema.
const RoleQueryReader = "query_reader"

// Identity is the caller behind an API key. Subject names the caller in logs.
type Identity struct {
	Subject string
	Roles   []string
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses comma separated key:subject:role|role
// entries. An empty spec yields a validator that accepts no keys.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	if strings.TrimSpace(spec) == "" {
		return validator, nil
	}
	for _, entry := range strings.Split(spec, ",") {
		key, identity, err := parseStaticKey(strings.TrimSpace(entry))
		if err != nil {
			return nil, fmt.Errorf("invalid static key entry %q: %w", entry, err)
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("invalid static key entry %q: duplicate key", entry)
		}
		validator.keys[key] = identity
	}
	return validator, nil
}

func parseStaticKey(entry string) (string, Identity, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 3 {
		return "", Identity{}, errors.New("expected key:subject:role|role")
	}
	key := strings.TrimSpace(parts[0])
	subject := strings.TrimSpace(parts[1])
	if key == "" || subject == "" {
		return "", Identity{}, errors.New("empty key/subject")
	}
	roles := strings.FieldsFunc(parts[2], func(r rune) bool { return r == '|' || r == ' ' })
	if len(roles) == 0 {
		return "", Identity{}, errors.New("at least one role is required")
	}
	sort.Strings(roles)
	return key, Identity{Subject: subject, Roles: roles}, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}

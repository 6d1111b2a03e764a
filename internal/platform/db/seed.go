package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"gdprdesk/internal/domain/auth"
	"gdprdesk/internal/platform/config"
)

var defaultCompanies = []struct{ name, email string }{
	{"Google LLC", "contact@google.com"},
	{"Microsoft Corporation", "contact@microsoft.com"},
	{"Apple Inc.", "contact@apple.com"},
	{"Meta Platforms Inc.", "contact@meta.com"},
	{"Amazon.com Inc.", "contact@amazon.com"},
}

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensureRoles(ctx, pool); err != nil {
		return err
	}
	if err := ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}
	if !cfg.IsProduction() {
		if err := ensureDefaultCompanies(ctx, pool); err != nil {
			return err
		}
	}
	return nil
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool) error {
	for _, role := range auth.Roles {
		if _, err := pool.Exec(ctx, "INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING", role.RoleID(), string(role)); err != nil {
			return err
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var exists bool
	if err := pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `
    INSERT INTO users (firstname, lastname, email, password_hash, role_id, active)
    VALUES ('System', 'Admin', $1, $2, $3, true)
  `, email, hash, auth.RoleAdmin.RoleID()); err != nil {
		return err
	}
	zap.S().Infow("seeded admin user", "email", email)
	return nil
}

func ensureDefaultCompanies(ctx context.Context, pool *pgxpool.Pool) error {
	for _, c := range defaultCompanies {
		if _, err := pool.Exec(ctx, `
      INSERT INTO companies (company_name, email) VALUES ($1, $2)
      ON CONFLICT DO NOTHING
    `, c.name, c.email); err != nil {
			return err
		}
	}
	return nil
}

package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML roster loaded at startup. Managers are referenced by
// email so the file stays readable.
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

type SeedUser struct {
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Role         string `yaml:"role"`
	Department   string `yaml:"department"`
	ManagerEmail string `yaml:"manager"`
	SlackUserID  string `yaml:"slackUserId"`
	Password     string `yaml:"password"`
}

func LoadSeedFile(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, err
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, u := range seed.Users {
		if strings.TrimSpace(u.Email) == "" || strings.TrimSpace(u.Name) == "" {
			return SeedFile{}, fmt.Errorf("seed user %d: name and email are required", i)
		}
	}
	return seed, nil
}

// Seed inserts missing roster users and links their managers. Existing users
// are left untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool, path string, hash func(string) (string, error)) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	seed, err := LoadSeedFile(path)
	if err != nil {
		return err
	}

	inserted := 0
	for _, u := range seed.Users {
		var passwordHash any
		if u.Password != "" {
			hashed, err := hash(u.Password)
			if err != nil {
				return err
			}
			passwordHash = hashed
		}
		tag, err := pool.Exec(ctx, `
      INSERT INTO users (name, email, role, department, slack_user_id, password_hash)
      VALUES ($1, lower($2), $3, $4, $5, $6)
      ON CONFLICT (lower(email)) DO NOTHING
    `, u.Name, u.Email, strings.ToLower(u.Role), strings.ToLower(u.Department), NullIfEmpty(u.SlackUserID), passwordHash)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		inserted += int(tag.RowsAffected())
	}

	for _, u := range seed.Users {
		if u.ManagerEmail == "" {
			continue
		}
		if _, err := pool.Exec(ctx, `
      UPDATE users
      SET manager_id = (SELECT id FROM users WHERE lower(email) = lower($1))
      WHERE lower(email) = lower($2) AND manager_id IS NULL
    `, u.ManagerEmail, u.Email); err != nil {
			return fmt.Errorf("seed manager for %s: %w", u.Email, err)
		}
	}

	slog.Info("seed completed", "users", len(seed.Users), "inserted", inserted)
	return nil
}

package session

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles is the profile repository. It doubles as the ProfileStore (and
// ProfileUpdater) the Synchronizer consumes.
type Profiles interface {
	repository.Repository[*Profile]

	ByIdentity(ctx context.Context, identityID string) (*Profile, error)
	ByIdentityTx(ctx context.Context, tx bun.IDB, identityID string) (*Profile, error)

	Seed(ctx context.Context, record *Profile) (*Profile, error)
	SeedTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)

	FetchProfile(ctx context.Context, identityID string) (*Profile, error)
	UpdateProfile(ctx context.Context, identityID string, update ProfileUpdate) error
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
	_ ProfileStore                    = (*profiles)(nil)
	_ ProfileUpdater                  = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (p *profiles) ByIdentity(ctx context.Context, identityID string) (*Profile, error) {
	return p.ByIdentityTx(ctx, p.db, identityID)
}

func (p *profiles) ByIdentityTx(ctx context.Context, tx bun.IDB, identityID string) (*Profile, error) {
	id, err := uuid.Parse(identityID)
	if err != nil {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"identity": identityID,
			})
	}

	record := &Profile{}
	if err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"identity": identityID,
				})
		}
		return nil, err
	}

	return record, nil
}

func (p *profiles) Seed(ctx context.Context, record *Profile) (*Profile, error) {
	return p.SeedTx(ctx, p.db, record)
}

func (p *profiles) SeedTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	prepareProfileDefaults(record)
	return p.Repository.CreateTx(ctx, tx, record)
}

// FetchProfile implements ProfileStore.
func (p *profiles) FetchProfile(ctx context.Context, identityID string) (*Profile, error) {
	record, err := p.ByIdentity(ctx, identityID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return record, nil
}

// UpdateProfile implements ProfileUpdater. Nil update fields are left
// untouched; updated_at is always stamped.
func (p *profiles) UpdateProfile(ctx context.Context, identityID string, update ProfileUpdate) error {
	id, err := uuid.Parse(identityID)
	if err != nil {
		return ErrProfileNotFound
	}

	if update.IsZero() {
		return nil
	}

	now := time.Now()
	q := p.db.NewUpdate().
		Model((*Profile)(nil)).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id)

	if update.Username != nil {
		q = q.Set("username = ?", *update.Username)
	}
	if update.FullName != nil {
		q = q.Set("full_name = ?", *update.FullName)
	}
	if update.AvatarURL != nil {
		q = q.Set("avatar_url = ?", *update.AvatarURL)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrProfileNotFound
	}

	return nil
}

func prepareProfileDefaults(record *Profile) {
	if record == nil {
		return
	}
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = record.CreatedAt
	}
}

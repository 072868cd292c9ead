package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/internal/feature/user"
	"go-gin-auth-backend/pkg/utils"
)

// GormStore backs the collection with a SQL table. Unlike the file store,
// every mutation is a single statement or transaction, so it is safe across
// processes.
type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (r *GormStore) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&user.UserModel{})
}

func toDomain(ms []user.UserModel) []domain.User {
	out := make([]domain.User, 0, len(ms))
	for i := range ms {
		out = append(out, ms[i].ToDomain())
	}
	return out
}

func (r *GormStore) Load(ctx context.Context) ([]domain.User, error) {
	var ms []user.UserModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomain(ms), nil
}

func (r *GormStore) Save(ctx context.Context, users []domain.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&user.UserModel{}).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}
		ms := make([]user.UserModel, 0, len(users))
		for i := range users {
			ms = append(ms, user.FromDomain(&users[i]))
		}
		return tx.CreateInBatches(ms, 200).Error
	})
}

func (r *GormStore) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var m user.UserModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u := m.ToDomain()
	return &u, nil
}

func (r *GormStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *GormStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormStore) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	rec := cloneUser(*u)
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = utils.NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m := user.FromDomain(&rec)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&user.UserModel{}).Where("email = ?", rec.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrEmailTaken
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		if isDupKey(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return &rec, nil
}

func (r *GormStore) updateWhere(ctx context.Context, column string, value any, query string, args ...any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&user.UserModel{}).Where(query, args...).Update(column, value)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormStore) UpdateRefreshToken(ctx context.Context, id, token string) (bool, error) {
	return r.updateWhere(ctx, "refresh_token", token, "id = ?", id)
}

func (r *GormStore) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) (bool, error) {
	if oldToken == "" {
		return false, nil
	}
	return r.updateWhere(ctx, "refresh_token", newToken, "id = ? AND refresh_token = ?", id, oldToken)
}

func (r *GormStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.updateWhere(ctx, "last_login", at.UTC(), "id = ?", id)
}

func (r *GormStore) RemoveRefreshTokenByValue(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return r.updateWhere(ctx, "refresh_token", gorm.Expr("NULL"), "refresh_token = ?", token)
}

func (r *GormStore) ListAll(ctx context.Context) ([]domain.User, error) {
	return r.Load(ctx)
}

func (r *GormStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&user.UserModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func isDupKey(err error) bool {
	if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

var _ domain.UserRepository = (*GormStore)(nil)

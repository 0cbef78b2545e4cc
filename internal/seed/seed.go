package seed

import (
	"context"
	"fmt"
	"log/slog"

	"photoshare/internal/models"

	"gorm.io/gorm"
)

// Options configures demo seeding.
type Options struct {
	NumUsers  int
	NumPhotos int
	// MaxComments and MaxLikes bound the per-photo activity.
	MaxComments int
	MaxLikes    int
	MaxDays     int
	// SkipBcrypt stores the demo password unhashed; those accounts cannot log in.
	SkipBcrypt  bool
	ShouldClean bool
	Seed        int64
}

// Result counts what Demo created.
type Result struct {
	Users    int `json:"users"`
	Photos   int `json:"photos"`
	Comments int `json:"comments"`
	Likes    int `json:"likes"`
}

// Demo fills the database with fake users, photos, comments and likes.
// Categories must already exist; photos are spread across them.
func Demo(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	db = db.WithContext(ctx)
	slog.Info("seeding demo data", slog.Int("users", opts.NumUsers), slog.Int("photos", opts.NumPhotos))

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("clear demo data: %w", err)
		}
	}

	var categories []models.Category
	if err := db.Order("id").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories found; seed categories first")
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return res, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
		res.Users++
	}
	if len(users) == 0 {
		return res, nil
	}

	for i := 0; i < opts.NumPhotos; i++ {
		owner := users[f.faker.Number(0, len(users)-1)]
		photo, err := f.CreatePhoto(owner, categories)
		if err != nil {
			return res, fmt.Errorf("create photo: %w", err)
		}
		res.Photos++

		for n := f.faker.Number(0, opts.MaxComments); n > 0; n-- {
			if _, err := f.CreateComment(users[f.faker.Number(0, len(users)-1)], photo); err != nil {
				return res, fmt.Errorf("create comment: %w", err)
			}
			res.Comments++
		}

		likes := f.faker.Number(0, opts.MaxLikes)
		for _, idx := range pick(f, len(users), likes) {
			if err := f.CreateLike(users[idx], photo); err != nil {
				return res, fmt.Errorf("create like: %w", err)
			}
			res.Likes++
		}
	}

	slog.Info("demo seeding complete",
		slog.Int("users", res.Users),
		slog.Int("photos", res.Photos),
		slog.Int("comments", res.Comments),
		slog.Int("likes", res.Likes))
	return res, nil
}

// pick returns up to k distinct indexes below n.
func pick(f *Factory, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := f.faker.Number(i, n-1)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// clearData removes user generated content but keeps categories.
func clearData(db *gorm.DB) error {
	slog.Warn("clearing existing users, photos, comments and likes")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Like{}, &models.Comment{}, &models.Photo{}, &models.PasswordResetRequest{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Package seed provides helpers to create category and demo data for the
// application database. Demo data is intended for development only.
package seed

import (
	"fmt"
	"strings"
	"time"

	"photoshare/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated demo account.
const DemoPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	opts  Options
	// hash of DemoPassword, computed once
	hash string
}

// NewFactory creates a Factory bound to db. A zero opts.Seed picks a time based seed.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	f := &Factory{db: db, faker: gofakeit.New(seed), opts: opts}
	if opts.SkipBcrypt {
		f.hash = DemoPassword
		return f, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	f.hash = string(hashed)
	return f, nil
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		Name:     first + " " + last,
		Email:    strings.ToLower(fmt.Sprintf("%s.%s.%d@example.com", first, last, f.faker.Number(1000, 9999))),
		Password: f.hash,
		Role:     models.RoleUser,
		Bio:      f.faker.Sentence(10),
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Omit("Photos").Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePhoto constructs and persists a sample photo uploaded by user into one of categories.
// Images point at picsum so no blob is written.
func (f *Factory) CreatePhoto(user *models.User, categories []models.Category, overrides ...func(*models.Photo)) (*models.Photo, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories to place photo in")
	}
	category := categories[f.faker.Number(0, len(categories)-1)]

	tags := []string{strings.ToLower(category.Name)}
	for i := f.faker.Number(0, 3); i > 0; i-- {
		tags = append(tags, f.faker.Noun())
	}

	photo := &models.Photo{
		Title:       strings.TrimSuffix(f.faker.Sentence(f.faker.Number(2, 5)), "."),
		Description: f.faker.Paragraph(1, 2, 8, " "),
		CategoryID:  category.ID,
		Tags:        models.ParseTags(strings.Join(tags, ",")),
		ImagePath:   fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID()),
		UploaderID:  user.ID,
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	photo.CreatedAt = time.Now().Add(-time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute)

	for _, override := range overrides {
		override(photo)
	}

	if err := f.db.Omit("Uploader", "Category", "Comments").Create(photo).Error; err != nil {
		return nil, err
	}
	return photo, nil
}

// CreateComment constructs and persists a sample comment by user on photo.
func (f *Factory) CreateComment(user *models.User, photo *models.Photo, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Text:     f.faker.Sentence(8),
		AuthorID: user.ID,
		PhotoID:  photo.ID,
	}

	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.Omit("Author").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on photo.
func (f *Factory) CreateLike(user *models.User, photo *models.Photo) error {
	return f.db.Create(&models.Like{UserID: user.ID, PhotoID: photo.ID}).Error
}

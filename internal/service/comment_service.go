package service

import (
	"context"
	"strings"

	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/observability"
	"photoshare/internal/repository"
	"photoshare/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
}

type CreateCommentInput struct {
	PhotoID uint
	Text    string
}

func NewCommentService(commentRepo repository.CommentRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo}
}

// Create adds a comment by the requester. The photo is checked and locked inside the write.
func (s *CommentService) Create(ctx context.Context, actor middleware.Identity, in CreateCommentInput) (*models.Comment, error) {
	if actor.UserID == 0 {
		return nil, models.NewUnauthorizedError("Unauthorized. Please log in.")
	}
	if err := validation.ValidateCommentText(in.Text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment := &models.Comment{
		Text:     strings.TrimSpace(in.Text),
		AuthorID: actor.UserID,
		PhotoID:  in.PhotoID,
	}
	if err := s.commentRepo.CreateOnPhoto(ctx, comment); err != nil {
		return nil, err
	}

	observability.ContentEvents.WithLabelValues("comment", "create").Inc()
	return comment, nil
}

func (s *CommentService) ListByPhoto(ctx context.Context, photoID uint) ([]*models.Comment, error) {
	return s.commentRepo.ListByPhoto(ctx, photoID)
}

// Delete removes a comment when the requester is its author or an admin.
// The deleted comment is returned so callers can redirect back to its photo.
func (s *CommentService) Delete(ctx context.Context, actor middleware.Identity, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(comment.AuthorID) {
		return nil, models.NewForbiddenError("You are not allowed to delete this comment.")
	}
	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return nil, err
	}

	observability.ContentEvents.WithLabelValues("comment", "delete").Inc()
	return comment, nil
}

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCommentText(t *testing.T) {
	assert.NoError(t, ValidateCommentText("Nice shot"))
	assert.NoError(t, ValidateCommentText(strings.Repeat("é", MaxCommentLength)))
	assert.Error(t, ValidateCommentText("   "))
	assert.Error(t, ValidateCommentText(strings.Repeat("x", MaxCommentLength+1)))
}

func TestValidatePhotoTitle(t *testing.T) {
	assert.NoError(t, ValidatePhotoTitle("Sunset"))
	assert.Error(t, ValidatePhotoTitle(""))
	assert.Error(t, ValidatePhotoTitle(strings.Repeat("t", MaxTitleLength+1)))
}

func TestValidateBioAndTags(t *testing.T) {
	assert.NoError(t, ValidateBio(""))
	assert.Error(t, ValidateBio(strings.Repeat("b", MaxBioLength+1)))

	assert.NoError(t, ValidateTags([]string{"a", "b"}))
	assert.Error(t, ValidateTags(make([]string, MaxTagCount+1)))
}

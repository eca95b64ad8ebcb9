package middleware

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateJPEG(t *testing.T) {
	assert.NoError(t, ValidateJPEG("a.jpeg", "image/jpeg"))
	assert.NoError(t, ValidateJPEG("A.JPEG", "image/jpeg"))
	assert.Error(t, ValidateJPEG("a.jpg", "image/jpeg"))
	assert.Error(t, ValidateJPEG("a.png", "image/jpeg"))
	assert.Error(t, ValidateJPEG("a.jpeg", "image/png"))
	assert.Error(t, ValidateJPEG("a.jpeg", ""))
	assert.Error(t, ValidateJPEG("jpeg", "image/jpeg"))
}

func TestValidateTenantID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme_01-dev"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("acme corp"))
	assert.Error(t, ValidateTenantID("../etc"))
}

func TestValidateRecordID(t *testing.T) {
	assert.NoError(t, ValidateRecordID(uuid.NewString()))
	assert.Error(t, ValidateRecordID(""))
	assert.Error(t, ValidateRecordID("1; DROP TABLE"))
}

func TestValidateLimit(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 5, ValidateLimit(5))
	assert.Equal(t, 100, ValidateLimit(1000))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "photo.jpeg", SanitizeString(" pho\x00to\x07.jpeg "))
}

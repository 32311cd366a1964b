package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	ShowtimeID string   `json:"showtime_id" validate:"required,uuid"`
	SeatIDs    []string `json:"seat_ids" validate:"min=1,unique"`
	Note       string   `validate:"max=3"`
}

func TestValidateStruct(t *testing.T) {
	errs := ValidateStruct(sampleRequest{
		ShowtimeID: "not-a-uuid",
		SeatIDs:    []string{},
		Note:       "too long",
	})

	assert.Equal(t, map[string]string{
		"showtime_id": "Must be a valid UUID",
		"seat_ids":    "Select at least 1 item(s)",
		"Note":        "Maximum length is 3",
	}, errs)

	errs = ValidateStruct(sampleRequest{SeatIDs: []string{"a", "a"}})
	assert.Equal(t, "This field is required", errs["showtime_id"])
	assert.Equal(t, "Values must not repeat", errs["seat_ids"])
}

func TestValidateStruct_Valid(t *testing.T) {
	errs := ValidateStruct(sampleRequest{
		ShowtimeID: "5b1f5a2e-3c4d-4e5f-8a9b-0c1d2e3f4a5b",
		SeatIDs:    []string{"a"},
	})
	assert.Nil(t, errs)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 0, CalculateTotalPages(0, 10))
	assert.Equal(t, 1, CalculateTotalPages(10, 10))
	assert.Equal(t, 3, CalculateTotalPages(21, 10))
	assert.Equal(t, 0, CalculateTotalPages(5, 0))

	assert.Equal(t, 0, CalculateOffset(0, 10))
	assert.Equal(t, 0, CalculateOffset(1, 10))
	assert.Equal(t, 20, CalculateOffset(3, 10))
}

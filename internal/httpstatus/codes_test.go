package httpstatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeaning(t *testing.T) {
	testCases := []struct {
		code     int
		expected string
	}{
		{200, "200 (OK)."},
		{404, "404 (Not Found)."},
		{500, "500 (Internal Server Error)."},
		{499, "499 (Client Closed Request (nginx, unofficial))."},
		{299, "299."},
		{0, "0."},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Meaning(tc.code))
	}
}

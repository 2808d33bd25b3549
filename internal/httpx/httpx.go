package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"dcc-backend/internal/listing"

	"github.com/go-playground/validator/v10"
)

func DecodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		details[err.Field()] = err.Tag()
	}
	return details
}

// ListQuery carries the table-controller inputs every listing endpoint
// accepts: free-text query, sort column, direction and zero-based page.
type ListQuery struct {
	Query     string
	SortBy    string
	Direction listing.Direction
	Page      int
}

func ParseListQuery(values url.Values) (ListQuery, error) {
	q := ListQuery{
		Query:     strings.TrimSpace(values.Get("query")),
		SortBy:    strings.TrimSpace(values.Get("sort")),
		Direction: listing.ParseDirection(values.Get("direction")),
	}

	rawPage := strings.TrimSpace(values.Get("page"))
	if rawPage != "" {
		page, err := strconv.Atoi(rawPage)
		if err != nil || page < 0 {
			return ListQuery{}, errors.New("invalid page")
		}
		q.Page = page
	}

	return q, nil
}

package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/authnd/authnd/internal/db/store"
)

var validate = validator.New()

// searchParams mirrors the query string of list endpoints. The store applies
// its own projection and sort whitelists; validation here only covers shape.
type searchParams struct {
	Fields    string `query:"fields"`
	Sort      string `query:"sort"`
	SortOrder string `query:"sort_order" validate:"omitempty,oneof=ascending descending"`
	Page      int    `query:"page"       validate:"gte=0"`
	Limit     int    `query:"limit"      validate:"omitempty,gte=10,lte=1000"`
}

// ParseQuery extracts projection, sort and pagination parameters from the
// request's query string.
func ParseQuery(c *fiber.Ctx) (store.Query, error) {
	params := new(searchParams)

	if err := c.QueryParser(params); err != nil {
		return store.Query{}, err
	}

	if err := validate.Struct(params); err != nil {
		return store.Query{}, err
	}

	q := store.Query{
		Sort:  params.Sort,
		Order: params.SortOrder,
		Page:  params.Page,
		Limit: params.Limit,
	}

	if params.Fields != "" {
		for _, f := range strings.Split(params.Fields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				q.Fields = append(q.Fields, f)
			}
		}
	}

	return q, nil
}

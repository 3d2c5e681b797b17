package http

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Pagination describes one page of an unfiltered collection.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// SetLinkHeaders adds RFC 8288 Link headers for an unfiltered collection,
// keeping any other query parameters the client sent.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	if p.Limit <= 0 {
		return
	}

	params := url.Values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		key := string(k)
		if key != "offset" && key != "limit" {
			params.Add(key, string(v))
		}
	})
	link := func(offset int, rel string) string {
		q := url.Values{}
		for k, vs := range params {
			q[k] = vs
		}
		q.Set("offset", fmt.Sprint(offset))
		q.Set("limit", fmt.Sprint(p.Limit))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, c.Path(), q.Encode(), rel)
	}

	links := []string{link(0, "first")}
	if p.Offset > 0 {
		links = append(links, link(max(p.Offset-p.Limit, 0), "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, link(p.Offset+p.Limit, "next"))
	}
	links = append(links, link(max(p.Total-p.Limit, 0), "last"))

	c.Set("Link", strings.Join(links, ", "))
}

package sqldao

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"
)

// Pagination describes one page of a paginated query. Page is 1-based.
// Total is the row count of the unpaginated query, read by a count query
// issued before the page query; the two are not read in a snapshot.
type Pagination struct {
	Page  int
	Size  int
	Total int64
}

// Offset returns the number of rows preceding the page. It saturates at
// math.MaxInt.
func (p Pagination) Offset() int {
	if p.Page < 1 || p.Size < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

// Pages returns the number of pages.
func (p Pagination) Pages() int {
	if p.Size < 1 || p.Total <= 0 {
		return 0
	}
	n := p.Total / int64(p.Size)
	if p.Total%int64(p.Size) != 0 {
		n++
	}
	return int(n)
}

// HasNext reports whether a page follows this one.
func (p Pagination) HasNext() bool {
	return p.Page < p.Pages()
}

// Token returns an opaque token addressing this page.
func (p Pagination) Token() string {
	b, err := msgpack.Marshal(pageToken{Page: p.Page, Size: p.Size})
	if err != nil {
		// Two ints always encode.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// NextToken returns the token of the following page, or "" on the last page.
func (p Pagination) NextToken() string {
	if !p.HasNext() {
		return ""
	}
	return Pagination{Page: p.Page + 1, Size: p.Size}.Token()
}

type pageToken struct {
	Page int `msgpack:"p"`
	Size int `msgpack:"s"`
}

// ParsePageToken decodes a token returned by Pagination.Token.
func ParsePageToken(token string) (Pagination, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Pagination{}, fmt.Errorf("sqldao: malformed page token: %w", err)
	}
	var t pageToken
	if err := msgpack.Unmarshal(b, &t); err != nil {
		return Pagination{}, fmt.Errorf("sqldao: malformed page token: %w", err)
	}
	if t.Page < 1 || t.Size < 1 {
		return Pagination{}, fmt.Errorf("sqldao: page token out of range (page=%d, size=%d)", t.Page, t.Size)
	}
	return Pagination{Page: t.Page, Size: t.Size}, nil
}

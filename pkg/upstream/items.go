package upstream

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	relayerrors "github.com/matzehuels/relay/pkg/errors"
)

// DefaultPageSize is used by list calls given a non-positive page size.
const DefaultPageSize = 25

// MaxItemName is the longest item name accepted by [Client.CreateItem].
const MaxItemName = 100

// Item is one upstream item.
type Item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ItemPage is one page of the items listing. NextCursor is nil on the last
// page.
type ItemPage struct {
	Items      []Item `json:"items"`
	NextCursor *int   `json:"next_cursor"`
	Count      int    `json:"count"`
}

// ListItemsPage fetches one page starting at cursor; nil starts at the
// beginning.
func (c *Client) ListItemsPage(ctx context.Context, pageSize int, cursor *int) (*ItemPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q := url.Values{"page_size": {strconv.Itoa(pageSize)}}
	if cursor != nil {
		q.Set("cursor", strconv.Itoa(*cursor))
	}

	var page ItemPage
	if err := c.Get(ctx, "/items", q).Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAllItems walks every page in order, yielding items as they arrive.
// Iteration stops after the first error, which is yielded with a zero Item.
// A cursor that does not advance is reported as an error rather than
// followed forever.
func (c *Client) ListAllItems(ctx context.Context, pageSize int) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		var cursor *int
		for {
			page, err := c.ListItemsPage(ctx, pageSize, cursor)
			if err != nil {
				yield(Item{}, err)
				return
			}
			for _, it := range page.Items {
				if !yield(it, nil) {
					return
				}
			}
			if page.NextCursor == nil {
				return
			}
			if cursor != nil && *page.NextCursor <= *cursor {
				yield(Item{}, fmt.Errorf("list items: cursor did not advance past %d", *cursor))
				return
			}
			next := *page.NextCursor
			cursor = &next
		}
	}
}

// CollectAllItems drains [Client.ListAllItems] into a slice.
func (c *Client) CollectAllItems(ctx context.Context, pageSize int) ([]Item, error) {
	var items []Item
	for it, err := range c.ListAllItems(ctx, pageSize) {
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// CreateItem validates name and creates an item. Names that fail
// validation are rejected without a request.
func (c *Client) CreateItem(ctx context.Context, name string) (*Item, error) {
	name, err := relayerrors.ValidateInput(name, "name", MaxItemName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, relayerrors.New(relayerrors.ErrCodeInvalidInput, "name is required")
	}

	var item Item
	if err := c.Post(ctx, "/items", map[string]string{"name": name}).Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

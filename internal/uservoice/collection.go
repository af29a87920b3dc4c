package uservoice

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Progress receives pagination progress for one collection fetch
type Progress interface {
	Start(total int)
	Update(current int)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int)  {}
func (nopProgress) Update(int) {}
func (nopProgress) Finish()    {}

// Collection holds every record fetched for one resource.
//
// Complete is true only when the server signalled the last page (or the
// single non-paginated request succeeded). A collection cut short by a failed
// request keeps the records gathered so far with Complete set to false.
type Collection[T any] struct {
	Records  []T
	Total    int // total_records reported on the first page
	Requests int
	Complete bool
}

// Fetch retrieves all records for req, following pagination cursors one page
// at a time when req.Paginate is set. A failed request ends the fetch without
// an error; only context cancellation is returned as one.
func Fetch[T any](ctx context.Context, c *Client, req Request) (*Collection[T], error) {
	col := &Collection[T]{Records: []T{}}

	if !req.Paginate {
		page, err := c.Page(ctx, req, "")
		col.Requests++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return col, nil
		}

		records, err := decodeRecords[T](page.Records)
		if err != nil {
			c.logger.Warn("Discarding undecodable response", zap.String("resource", req.Resource), zap.Error(err))
			return col, nil
		}
		col.Records = records
		col.Total = len(records)
		col.Complete = true
		return col, nil
	}

	bar := c.progressFor(req.Resource)
	defer bar.Finish()

	cursor := ""
	for {
		page, err := c.Page(ctx, req, cursor)
		col.Requests++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Warn("Pagination stopped early",
				zap.String("resource", req.Resource),
				zap.Int("records", len(col.Records)),
				zap.Int("requests", col.Requests))
			return col, nil
		}

		records, err := decodeRecords[T](page.Records)
		if err != nil {
			c.logger.Warn("Pagination stopped on undecodable page",
				zap.String("resource", req.Resource),
				zap.Int("records", len(col.Records)),
				zap.Error(err))
			return col, nil
		}
		col.Records = append(col.Records, records...)

		if col.Requests == 1 {
			if page.Pagination != nil {
				col.Total = page.Pagination.TotalRecords
			}
			bar.Start(col.Total)
		}
		bar.Update(len(col.Records))

		if page.Pagination == nil || page.Pagination.Cursor == "" {
			col.Complete = true
			return col, nil
		}

		// A server handing back the cursor we just used would loop forever
		if page.Pagination.Cursor == cursor {
			c.logger.Warn("Pagination cursor did not advance",
				zap.String("resource", req.Resource),
				zap.String("cursor", cursor))
			return col, nil
		}
		cursor = page.Pagination.Cursor
	}
}

func decodeRecords[T any](raw json.RawMessage) ([]T, error) {
	if isNull(raw) {
		return nil, nil
	}

	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	return records, nil
}

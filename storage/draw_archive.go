package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DrawSheet - итог жеребьёвки в том виде, в каком он хранится в архиве.
type DrawSheet struct {
	TournamentID int              `json:"tournament_id"`
	Name         string           `json:"name"`
	DrawnAt      time.Time        `json:"drawn_at"`
	Groups       map[string][]int `json:"groups"`
}

// DrawArchive складывает листы жеребьёвки в объектное хранилище как JSON.
type DrawArchive struct {
	uploader FileUploader
}

func NewDrawArchive(uploader FileUploader) *DrawArchive {
	return &DrawArchive{uploader: uploader}
}

func DrawSheetKey(tournamentID int, drawnAt time.Time) string {
	return fmt.Sprintf("draws/tournament-%d/%s.json", tournamentID, drawnAt.UTC().Format("20060102T150405Z"))
}

// Archive возвращает публичный URL сохранённого листа.
func (a *DrawArchive) Archive(ctx context.Context, sheet DrawSheet) (string, error) {
	body, err := json.MarshalIndent(sheet, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode draw sheet for tournament %d: %w", sheet.TournamentID, err)
	}
	res, err := a.uploader.Upload(ctx, DrawSheetKey(sheet.TournamentID, sheet.DrawnAt), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return res.Location, nil
}

// Package export serializes match proposals for spreadsheets and scripts.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/fletescerealeros/fletes/core/model"
)

// WriteJSON writes the proposals to w in JSON format.
func WriteJSON(w io.Writer, proposals []model.MatchProposal) error {
	enc := json.NewEncoder(w)
	return enc.Encode(proposals)
}

// WriteCSV writes the proposals to w in CSV format.
func WriteCSV(w io.Writer, proposals []model.MatchProposal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "status", "score", "carrier", "carrier_phone", "producer", "producer_phone", "created_at"}); err != nil {
		return err
	}
	for _, p := range proposals {
		rec := []string{
			strconv.FormatInt(p.ID, 10),
			string(p.Status),
			strconv.FormatFloat(p.Score, 'f', -1, 64),
			p.CapacityName,
			p.CapacityPhone,
			p.DemandName,
			p.DemandPhone,
			p.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

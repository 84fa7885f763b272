package billdesk

import (
	"github.com/bec-bridge/billdesk-voice/shared"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// FeeSummary is the shape of a fee entry inside the room metadata blob.
type FeeSummary struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Amount  int    `json:"amount"`
	DueDate string `json:"dueDate,omitempty"`
}

// RoomMetadata is the per-session context blob the portal attaches when it
// creates the voice room. It seeds the conversation opening only; fee data
// for operations is always re-derived from the catalogue.
type RoomMetadata struct {
	StudentName  string       `json:"studentName"`
	StudentUsn   string       `json:"studentUsn"`
	Department   string       `json:"department"`
	Semester     string       `json:"semester"`
	PaidFees     []string     `json:"paidFees"`
	PendingFees  []FeeSummary `json:"pendingFees"`
	PaidFeesData []FeeSummary `json:"paidFeesData"`
	TotalPending int          `json:"totalPending"`
	TotalPaid    int          `json:"totalPaid"`
}

// ParseRoomMetadata decodes the metadata blob. A malformed or empty blob is
// not an error: the conversation just proceeds without personalized context.
func ParseRoomMetadata(logger shared.LoggerAdapter, raw string) RoomMetadata {
	var meta RoomMetadata
	if raw == "" {
		return meta
	}
	if err := sonic.UnmarshalString(raw, &meta); err != nil {
		logger.Warn("could not parse room metadata, proceeding without context", zap.Error(err))
		return RoomMetadata{}
	}
	return meta
}

package presenter

import (
	"time"

	dto "github.com/anishvdev/voiceforge/internal/adapter/dto/voice"
	"github.com/anishvdev/voiceforge/internal/domain/entities"
)

// VoiceSummary shapes a profile for the REST surface.
func VoiceSummary(p *entities.VoiceProfile) dto.SummaryResponse {
	return dto.SummaryResponse{
		VoiceName: p.VoiceName,
		AudioPath: p.AudioPath,
		Metadata:  p.Metadata,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

// VoiceSummaries shapes a listing.
func VoiceSummaries(summaries []entities.VoiceSummary) []dto.SummaryResponse {
	out := make([]dto.SummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, dto.SummaryResponse{
			VoiceName: s.VoiceName,
			Metadata:  s.Metadata,
			CreatedAt: s.CreatedAt.Format(time.RFC3339),
			UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
		})
	}
	return out
}

package telegram

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	acquisitionDomain "github.com/reshetovitsme/streamer-census/internal/modules/acquisition/domain"
	channelDomain "github.com/reshetovitsme/streamer-census/internal/modules/channel/domain"
	quotaDomain "github.com/reshetovitsme/streamer-census/internal/modules/quota/domain"
	"github.com/samber/lo"
)

const helpText = `Comandos disponibles:
/status - cuota del día y total de canales
/stats - canales aceptados por región, categoría y método
/recent - últimos canales detectados
/stop - dejar de recibir resúmenes`

// FormatSummary renders a run summary as a plain-text message.
func FormatSummary(s *acquisitionDomain.Summary) string {
	var text strings.Builder
	fmt.Fprintf(&text, "📡 Corrida %s: %s\n", shortID(s.RunID), s.StopReason)
	fmt.Fprintf(&text, "Duración: %s\n\n", s.Duration().Round(time.Second))
	fmt.Fprintf(&text, "Búsquedas: %d tareas, %d páginas\n", s.Tasks, s.Pages)
	fmt.Fprintf(&text, "Candidatos: %d (ya vistos %d, inválidos %d)\n", s.Candidates, s.SkippedSeen, s.Invalid)
	fmt.Fprintf(&text, "Analizados: %d\n", s.Analyzed)
	fmt.Fprintf(&text, "✅ Aceptados: %d\n", s.Accepted)
	fmt.Fprintf(&text, "❌ Rechazados: %d\n", s.RejectedTotal())
	if s.Errors > 0 {
		fmt.Fprintf(&text, "⚠️ Errores: %d\n", s.Errors)
	}
	fmt.Fprintf(&text, "Cuota: %d usada, %d restante\n", s.QuotaUsed, s.QuotaRemaining)

	writeCounts(&text, "Rechazos", s.Rejected)
	writeCounts(&text, "Regiones", s.ByRegion)
	writeCounts(&text, "Categorías", s.ByCategory)
	return strings.TrimRight(text.String(), "\n")
}

// FormatStatus renders the quota report next to the accepted total.
func FormatStatus(report quotaDomain.Report, stats channelDomain.Stats) string {
	var text strings.Builder
	fmt.Fprintf(&text, "📊 Estado %s\n\n", report.Date)
	fmt.Fprintf(&text, "Cuota: %d / %d usada (reserva %d)\n", report.Used, report.DailyLimit, report.SafetyBuffer)
	fmt.Fprintf(&text, "Restante: %d\n", max(report.Remaining, 0))
	if len(report.Exhausted) > 0 {
		fmt.Fprintf(&text, "Credenciales agotadas: %d\n", len(report.Exhausted))
	}
	fmt.Fprintf(&text, "Canales aceptados: %d\n", stats.Total)
	if !stats.LastDetectedAt.IsZero() {
		fmt.Fprintf(&text, "Última detección: %s\n", stats.LastDetectedAt.UTC().Format(time.DateTime))
	}
	return strings.TrimRight(text.String(), "\n")
}

// FormatStats renders the aggregate view of the accepted set.
func FormatStats(stats channelDomain.Stats) string {
	if stats.Total == 0 {
		return "📭 Todavía no hay canales aceptados."
	}
	var text strings.Builder
	fmt.Fprintf(&text, "📈 %d canales, confianza promedio %.1f\n", stats.Total, stats.AverageConfidence)
	writeCounts(&text, "Regiones", stats.ByRegion)
	writeCounts(&text, "Categorías", stats.ByCategory)
	writeCounts(&text, "Métodos", stats.ByMethod)
	return strings.TrimRight(text.String(), "\n")
}

// FormatRecent lists the newest accepted channels.
func FormatRecent(records []channelDomain.Record) string {
	if len(records) == 0 {
		return "📭 Todavía no hay canales aceptados."
	}
	var text strings.Builder
	text.WriteString("🆕 Últimos canales:\n")
	for i, r := range records {
		fmt.Fprintf(&text, "\n%d. %s (%s, %s) %d%%\n   %s\n", i+1, r.Title, r.Category, r.Region, r.Confidence, r.URL)
	}
	return strings.TrimRight(text.String(), "\n")
}

// writeCounts prints counts by descending value, ties by key.
func writeCounts(text *strings.Builder, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	entries := lo.Entries(counts)
	slices.SortFunc(entries, func(a, b lo.Entry[string, int]) int {
		return cmp.Or(cmp.Compare(b.Value, a.Value), cmp.Compare(a.Key, b.Key))
	})
	parts := lo.Map(entries, func(e lo.Entry[string, int], _ int) string {
		return fmt.Sprintf("%s %d", e.Key, e.Value)
	})
	fmt.Fprintf(text, "\n%s: %s", label, strings.Join(parts, ", "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

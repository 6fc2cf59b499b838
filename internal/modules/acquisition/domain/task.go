package domain

import (
	"fmt"
	"strings"
	"time"

	classifyDomain "github.com/reshetovitsme/streamer-census/internal/modules/classify/domain"
	"github.com/samber/lo"
)

// PhaseCount is the number of search phases rotated through by day of year.
const PhaseCount = 4

// Task is one search query and the number of result pages to walk.
type Task struct {
	Query string `json:"query"`
	Pages int    `json:"pages"`
}

type term struct {
	prefix string
	pages  int
}

var generalTasks = []Task{
	{Query: "argentina", Pages: 25},
	{Query: "argentino", Pages: 25},
	{Query: "argentinos", Pages: 20},
	{Query: "streaming argentina", Pages: 30},
	{Query: "youtuber argentina", Pages: 25},
	{Query: "canal argentino", Pages: 20},
	{Query: "gaming argentina", Pages: 25},
	{Query: "en vivo argentina", Pages: 20},
}

var (
	largeProvinceTerms  = []term{{"streaming", 40}, {"gaming", 35}, {"youtuber", 30}, {"en vivo", 25}}
	mediumProvinceTerms = []term{{"streaming", 50}, {"gaming", 45}, {"youtuber", 40}}
	smallProvinceTerms  = []term{{"streaming", 50}, {"gaming", 50}, {"canal", 50}}
	localCodeTerms      = []term{{"bunker", 50}, {"charlas", 50}, {"gaming", 45}, {"streaming", 45}, {"en vivo", 40}}

	largeProvinces  = []string{"Buenos Aires", "Córdoba", "Santa Fe", "Mendoza"}
	mediumProvinces = []string{"Tucumán", "Salta", "Entre Ríos", "Misiones", "Chaco", "Corrientes"}
)

var culturalTasks = []Task{
	{Query: "mate gaming", Pages: 30},
	{Query: "folklore streaming", Pages: 35},
	{Query: "tango en vivo", Pages: 25},
	{Query: "asado live", Pages: 20},
	{Query: "che gaming", Pages: 40},
	{Query: "boludo streaming", Pages: 35},
	{Query: "cuarteto en vivo", Pages: 30},
	{Query: "chamamé live", Pages: 40},
	{Query: "empanadas streaming", Pages: 25},
	{Query: "vino gaming", Pages: 30},
	{Query: "cordillera live", Pages: 25},
	{Query: "patagonia streaming", Pages: 35},
	{Query: "noa gaming", Pages: 30},
	{Query: "cuyo en vivo", Pages: 25},
	{Query: "litoral streaming", Pages: 30},
	{Query: "pampa gaming", Pages: 25},
}

// PhaseFor maps a date to a search phase in 1..PhaseCount.
func PhaseFor(t time.Time) int {
	return t.YearDay()%PhaseCount + 1
}

// PhaseTasks builds the task list of phase. Page budgets are capped at
// maxPages when it is positive. An unknown phase yields no tasks.
func PhaseTasks(phase int, lex *classifyDomain.Lexicon, maxPages int) []Task {
	var tasks []Task
	switch phase {
	case 1:
		tasks = generalTasks
	case 2:
		tasks = provinceTasks(lex.Explicit.Provinces)
	case 3:
		tasks = codeTasks(lex.Explicit.Codes)
	case 4:
		tasks = culturalTasks
	}
	return CapPages(tasks, maxPages)
}

// CapPages returns a copy of tasks with every budget at most maxPages.
// Tasks without a budget get maxPages.
func CapPages(tasks []Task, maxPages int) []Task {
	return lo.Map(tasks, func(t Task, _ int) Task {
		if maxPages > 0 && (t.Pages <= 0 || t.Pages > maxPages) {
			t.Pages = maxPages
		}
		return t
	})
}

func provinceTasks(provinces []string) []Task {
	var tasks []Task
	for _, province := range provinces {
		terms := smallProvinceTerms
		switch {
		case lo.Contains(largeProvinces, province):
			terms = largeProvinceTerms
		case lo.Contains(mediumProvinces, province):
			terms = mediumProvinceTerms
		}
		for _, t := range terms {
			tasks = append(tasks, Task{Query: fmt.Sprintf("%s %s", t.prefix, province), Pages: t.pages})
		}
	}
	return tasks
}

func codeTasks(codes []classifyDomain.LocalCode) []Task {
	var tasks []Task
	for _, c := range codes {
		code := strings.ToLower(c.Code)
		for _, t := range localCodeTerms {
			tasks = append(tasks, Task{Query: fmt.Sprintf("%s %s", t.prefix, code), Pages: t.pages})
		}
	}
	return tasks
}

// Plan picks the tasks of a run. An explicit list wins and keeps its own
// budgets; otherwise the pinned phase, or the phase of now when pinned is 0,
// is expanded. The returned phase is 0 for an explicit list.
func Plan(explicit []Task, pinned int, lex *classifyDomain.Lexicon, maxPages int, now time.Time) ([]Task, int) {
	explicit = lo.Filter(explicit, func(t Task, _ int) bool {
		return strings.TrimSpace(t.Query) != ""
	})
	if len(explicit) > 0 {
		return lo.Map(explicit, func(t Task, _ int) Task {
			if t.Pages <= 0 {
				t.Pages = max(maxPages, 1)
			}
			return t
		}), 0
	}
	phase := pinned
	if phase < 1 || phase > PhaseCount {
		phase = PhaseFor(now)
	}
	return PhaseTasks(phase, lex, maxPages), phase
}

package nodes

import (
	"context"
	"regexp"
	"strings"

	"github.com/galinilin/docgemma-connect/internal/events"
	"github.com/galinilin/docgemma-connect/internal/graph"
)

// patientIDPattern matches the short opaque patient-identifier tokens
// spec §4.F.1 calls for: a letter prefix followed by digits, e.g.
// "PAT-1001" or "pt4471".
var patientIDPattern = regexp.MustCompile(`(?i)\b(?:pat|pt)-?[0-9]{3,6}\b`)

// knownDrugs is the vocabulary input_assembly matches drug mentions
// against. It intentionally overlaps with internal/tools/clinical's
// canned data so a mention of a drug the tools know about is always
// detected.
var knownDrugs = []string{
	"dofetilide", "amiodarone", "metformin", "lisinopril", "albuterol",
	"warfarin", "insulin", "atorvastatin",
}

// actionVerbs is the fixed vocabulary of clinical action verbs spec
// §4.F.1 names as an example: document/prescribe/save/get/etc.
var actionVerbs = []string{
	"document", "prescribe", "save", "get", "check", "look up", "lookup",
	"search", "find", "retrieve", "order", "refill", "renew",
}

// InputAssembly returns the F.1 node: deterministic, no LM call. It
// scans the user query and conversation history for patient-identifier
// candidates, known drug mentions, action verbs, and an image-present
// flag, and carries over prior-turn image findings when the current
// turn has no new image.
func InputAssembly(_ Deps) func(context.Context, *graph.TurnState, *events.Emitter) (graph.Partial, error) {
	return func(_ context.Context, s *graph.TurnState, _ *events.Emitter) (graph.Partial, error) {
		haystack := strings.ToLower(s.UserQuery)
		for _, h := range s.History {
			haystack += " " + strings.ToLower(h.Content)
		}

		ids := dedupeMatches(patientIDPattern.FindAllString(haystack, -1))

		var drugs []string
		for _, d := range knownDrugs {
			if strings.Contains(haystack, d) {
				drugs = append(drugs, d)
			}
		}

		var verbs []string
		for _, v := range actionVerbs {
			if strings.Contains(haystack, v) {
				verbs = append(verbs, v)
			}
		}

		imagePresent := len(s.ImageBytes) > 0

		entities := graph.Entities{
			PatientIdentifiers: ids,
			DrugMentions:       drugs,
			ActionVerbs:        verbs,
			ImagePresent:       imagePresent,
		}

		p := graph.Partial{Entities: &entities}
		if !imagePresent && s.CarriedImageFindings != "" {
			carried := s.CarriedImageFindings
			p.CarriedImageFindings = &carried
		}
		return p, nil
	}
}

func dedupeMatches(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

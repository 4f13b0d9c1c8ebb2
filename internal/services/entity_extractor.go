package services

import (
	"context"
	"slices"
	"strings"

	"github.com/justsurfingit/applytrail/internal/config"
	"go.uber.org/zap"
)

const (
	beginPrefix   = "B-"
	insidePrefix  = "I-"
	subwordPrefix = "##"
)

// NERClient tags free text with begin/inside entity labels.
type NERClient interface {
	Tag(ctx context.Context, text string) ([]TaggedToken, error)
}

// EntitySpan is a run of tagged tokens collapsed into one typed candidate string.
type EntitySpan struct {
	Type  string
	Text  string
	Score float64
}

// ExtractionOutcome tells apart the reasons a message yields no record. All of them
// except OutcomeFound make the orchestrator skip the message.
type ExtractionOutcome string

const (
	OutcomeFound         ExtractionOutcome = "found"
	OutcomeIncomplete    ExtractionOutcome = "incomplete"
	OutcomeNoEntities    ExtractionOutcome = "no_entities"
	OutcomeServiceFailed ExtractionOutcome = "service_failed"
)

// Extraction is the reduced recognizer output. An empty Company or Position means absent.
type Extraction struct {
	Company  string
	Position string
	Outcome  ExtractionOutcome
	Err      error
}

// Complete reports whether both fields needed for a record are present.
func (e Extraction) Complete() bool {
	return e.Company != "" && e.Position != ""
}

// MergeSpans rebuilds entity spans from a flat tag sequence. Spans are grouped by type
// in the order they were opened. An inside tag extends the latest span of its own type
// and is dropped when no such span exists; unknown tag formats are ignored.
func MergeSpans(tokens []TaggedToken) map[string][]*EntitySpan {
	spans := make(map[string][]*EntitySpan)
	for _, tok := range tokens {
		switch {
		case strings.HasPrefix(tok.Tag, beginPrefix) && len(tok.Tag) > len(beginPrefix):
			typ := tok.Tag[len(beginPrefix):]
			spans[typ] = append(spans[typ], &EntitySpan{Type: typ, Text: tok.Token, Score: tok.Score})

		case strings.HasPrefix(tok.Tag, insidePrefix) && len(tok.Tag) > len(insidePrefix):
			typ := tok.Tag[len(insidePrefix):]
			open := spans[typ]
			if len(open) == 0 {
				continue
			}
			last := open[len(open)-1]
			if strings.HasPrefix(tok.Token, subwordPrefix) {
				last.Text += strings.TrimPrefix(tok.Token, subwordPrefix)
			} else {
				last.Text += " " + tok.Token
			}
		}
	}
	return spans
}

// BestSpan returns the highest scoring span; ties go to the span seen first.
func BestSpan(spans []*EntitySpan) *EntitySpan {
	if len(spans) == 0 {
		return nil
	}
	ranked := slices.Clone(spans)
	slices.SortStableFunc(ranked, func(a, b *EntitySpan) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return ranked[0]
}

// EntityExtractor turns an email's text into a (company, position) candidate.
type EntityExtractor struct {
	client         NERClient
	logger         *zap.Logger
	companyEntity  string
	positionEntity string
}

func NewEntityExtractor(client NERClient, cfg config.ExtractorConfig, logger *zap.Logger) *EntityExtractor {
	return &EntityExtractor{
		client:         client,
		logger:         logger,
		companyEntity:  cfg.CompanyEntity,
		positionEntity: cfg.PositionEntity,
	}
}

// Extract never fails: recognizer errors are reported through Outcome and Err with
// both fields absent.
func (e *EntityExtractor) Extract(ctx context.Context, text string) Extraction {
	tokens, err := e.client.Tag(ctx, text)
	if err != nil {
		e.logger.Warn("Entity recognition failed", zap.Error(err))
		return Extraction{Outcome: OutcomeServiceFailed, Err: err}
	}

	spans := MergeSpans(tokens)
	var res Extraction
	if best := BestSpan(spans[e.companyEntity]); best != nil {
		res.Company = strings.TrimSpace(best.Text)
	}
	if best := BestSpan(spans[e.positionEntity]); best != nil {
		res.Position = strings.TrimSpace(best.Text)
	}

	switch {
	case res.Complete():
		res.Outcome = OutcomeFound
	case res.Company == "" && res.Position == "":
		res.Outcome = OutcomeNoEntities
	default:
		res.Outcome = OutcomeIncomplete
	}
	return res
}

// Package jordi is the narrative-pitch assistant: it grounds a chat
// conversation in archive stories and asks an LLM for documentary pitches.
package jordi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/TobiSchelling/storyatlas/internal/database"
	"github.com/TobiSchelling/storyatlas/internal/discovery"
	"github.com/TobiSchelling/storyatlas/internal/fallback"
	"github.com/TobiSchelling/storyatlas/internal/llm"
	"github.com/TobiSchelling/storyatlas/internal/model"
)

// Assistant replies.
const (
	msgError            = "Sorry, I encountered an error processing your request."
	msgBusy             = "I'm working through several requests right now. Please try again in a moment."
	msgTurnParseError   = "I had trouble processing that request."
	msgFirstParseError  = "I've analyzed the archives but encountered an issue processing the results."
	msgTurnDefault      = "I've analyzed the archives and found some interesting narratives."
	msgFirstDefaultTmpl = "I've analyzed the %s archive and found some compelling narratives."
	msgNoStoriesTmpl    = "I'm Jordi, your narrative research assistant. I'm showing you [MOCK DATA] for %s since no real stories were found. In production, you'll see actual content from your archives."
)

const (
	defaultMaxStories     = 100
	defaultTimeout        = 60 * time.Second
	defaultMaxTokens      = 1500
	defaultTemperature    = 0.7
	firstLoadTemperature  = 0.9
	contextPeople         = 3
	contextKeywordsWindow = 10
)

// Phase is the conversation state after a turn.
type Phase string

const (
	PhaseInit                  Phase = "init"
	PhaseAwaitingFirstResponse Phase = "awaiting_first_response"
	PhaseSteady                Phase = "steady"
)

// PhaseOf returns the state a conversation is in given its history.
func PhaseOf(history []llm.Message) Phase {
	if len(history) == 0 {
		return PhaseInit
	}
	return PhaseSteady
}

// next is the state after a turn taken from p. Degraded turns advance too so
// that no turn is lost.
func (p Phase) next() Phase {
	if p == PhaseInit {
		return PhaseAwaitingFirstResponse
	}
	return PhaseSteady
}

// Pitch is a generated documentary concept.
type Pitch struct {
	Title           string       `json:"title"`
	Tagline         string       `json:"tagline"`
	Stories         []PitchStory `json:"stories"`
	PotentialFormat string       `json:"potentialFormat"`
	ComparableTo    string       `json:"comparableTo,omitempty"`
}

// PitchStory is a story referenced by a pitch.
type PitchStory struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Request is one conversational turn.
type Request struct {
	Publication string
	StartDate   *time.Time
	EndDate     *time.Time
	Messages    []llm.Message
}

// Response is always well-formed; failures are reported in Message.
type Response struct {
	Message      llm.Message          `json:"message"`
	Pitches      []Pitch              `json:"pitches"`
	Context      model.DatasetContext `json:"context"`
	Phase        Phase                `json:"phase"`
	UsedFallback bool                 `json:"usedFallback,omitempty"`
}

// Store is the read side of the story store used by the service.
type Store interface {
	FindStories(ctx context.Context, f database.StoryFilter, order database.Order, limit int) ([]database.Story, error)
}

// Options tunes the service. Zero values take defaults.
type Options struct {
	MaxStories  int
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
	// Limiter bounds calls to the provider. Nil means unlimited.
	Limiter *rate.Limiter
}

// NewLimiter returns a token bucket allowing perSecond generations with the
// given burst, or nil (unlimited) when perSecond <= 0.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Service answers pitch conversations.
type Service struct {
	store    Store
	provider llm.Provider
	catalog  *fallback.Catalog
	opts     Options
}

// NewService creates a service. provider may be nil, in which case every turn
// with story data degrades to an apology.
func NewService(store Store, provider llm.Provider, catalog *fallback.Catalog, opts Options) *Service {
	if catalog == nil {
		catalog = fallback.NewCatalog()
	}
	if opts.MaxStories <= 0 {
		opts.MaxStories = defaultMaxStories
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	return &Service{store: store, provider: provider, catalog: catalog, opts: opts}
}

type generated struct {
	WelcomeMessage string  `json:"welcomeMessage"`
	Pitches        []Pitch `json:"pitches"`
}

// Converse runs one turn. It never fails: store, generation and parse errors
// are logged and turned into an assistant message with no pitches.
func (s *Service) Converse(ctx context.Context, req Request) (resp *Response) {
	phase := PhaseOf(req.Messages)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Jordi panic: %v", r)
			resp = s.apology(req, phase, msgError)
		}
	}()

	stories, err := s.store.FindStories(ctx, database.StoryFilter{
		Publication: req.Publication,
		From:        req.StartDate,
		To:          req.EndDate,
	}, database.NewestFirst, s.opts.MaxStories)
	if err != nil {
		log.Printf("Jordi: fetching stories: %v", err)
		return s.apology(req, phase, msgError)
	}

	// Without stories there is nothing to ground a pitch in, so the model is
	// never called.
	if len(stories) == 0 {
		log.Printf("Jordi: no stories for %q, using fallback context", req.Publication)
		pub := req.Publication
		if pub == "" {
			pub = "news archives"
		}
		return &Response{
			Message:      llm.Message{Role: llm.RoleAssistant, Content: fmt.Sprintf(msgNoStoriesTmpl, pub)},
			Pitches:      []Pitch{},
			Context:      s.catalog.ContextOrDefault(req.Publication),
			Phase:        phase.next(),
			UsedFallback: true,
		}
	}

	datasetCtx := s.datasetContext(req.Publication, stories)
	degrade := func(msg string) *Response {
		return &Response{
			Message: llm.Message{Role: llm.RoleAssistant, Content: msg},
			Pitches: []Pitch{},
			Context: datasetCtx,
			Phase:   phase.next(),
		}
	}

	messages, temperature, err := s.buildMessages(req, stories)
	if err != nil {
		log.Printf("Jordi: %v", err)
		return degrade(msgError)
	}

	if s.provider == nil {
		log.Println("Jordi: no LLM provider available")
		return degrade(msgError)
	}

	// Only turns that reach the model spend generation capacity.
	if s.opts.Limiter != nil && !s.opts.Limiter.Allow() {
		log.Println("Jordi: generation rate limit reached")
		return degrade(msgBusy)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	text, err := s.provider.Chat(genCtx, messages, llm.Options{
		JSON:        true,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		log.Printf("Jordi: generation failed: %v", err)
		return degrade(msgError)
	}

	var out generated
	if err := llm.DecodeJSON(text, &out); err != nil {
		log.Printf("Jordi: %v", err)
		if phase == PhaseInit {
			return degrade(msgFirstParseError)
		}
		return degrade(msgTurnParseError)
	}

	content := out.WelcomeMessage
	if content == "" {
		if phase == PhaseInit {
			content = fmt.Sprintf(msgFirstDefaultTmpl, displayPublication(req.Publication))
		} else {
			content = msgTurnDefault
		}
	}
	pitches := out.Pitches
	if pitches == nil {
		pitches = []Pitch{}
	}
	for i := range pitches {
		if pitches[i].Stories == nil {
			pitches[i].Stories = []PitchStory{}
		}
	}

	return &Response{
		Message: llm.Message{Role: llm.RoleAssistant, Content: content},
		Pitches: pitches,
		Context: datasetCtx,
		Phase:   phase.next(),
	}
}

var errNoUserTurn = errors.New("no user message in conversation")

// buildMessages prepends the grounded system prompt. A first load adds the
// canned opening question; later turns replay the client history.
func (s *Service) buildMessages(req Request, stories []database.Story) ([]llm.Message, float32, error) {
	system := llm.Message{
		Role:    llm.RoleSystem,
		Content: buildSystemPrompt(req.Publication, s.dateRange(req, stories), stories),
	}

	if len(req.Messages) == 0 {
		return []llm.Message{system, {
			Role:    llm.RoleUser,
			Content: fmt.Sprintf(firstLoadPrompt, displayPublication(req.Publication)),
		}}, firstLoadTemperature, nil
	}

	hasUser := false
	messages := []llm.Message{system}
	for _, m := range req.Messages {
		role := llm.RoleUser
		if m.Role == llm.RoleAssistant {
			role = llm.RoleAssistant
		} else {
			hasUser = true
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	if !hasUser {
		return nil, 0, errNoUserTurn
	}
	return messages, s.opts.Temperature, nil
}

// dateRange prefers the requested window and falls back to the span of the
// fetched stories.
func (s *Service) dateRange(req Request, stories []database.Story) string {
	if req.StartDate != nil && req.EndDate != nil {
		return database.FormatHumanRange(*req.StartDate, *req.EndDate)
	}
	start, end := span(stories)
	return database.FormatHumanRange(start, end)
}

// datasetContext uses the publication preset when one exists; otherwise it
// is computed from the stories themselves.
func (s *Service) datasetContext(publication string, stories []database.Story) model.DatasetContext {
	if preset, ok := s.catalog.Context(publication); ok {
		return preset
	}

	start, end := span(stories)
	people := []string{}
	for _, p := range (discovery.HeuristicEntities{}).Entities(stories, contextPeople).People {
		people = append(people, p.Name)
	}
	keywords := discovery.FrequencyKeywords{}.Keywords(stories, contextKeywordsWindow)

	return model.DatasetContext{
		Count:     len(stories),
		DateRange: database.FormatHumanRange(start, end),
		TopPeople: people,
		Themes:    discovery.Themes(keywords),
	}
}

func (s *Service) apology(req Request, phase Phase, msg string) *Response {
	return &Response{
		Message: llm.Message{Role: llm.RoleAssistant, Content: msg},
		Pitches: []Pitch{},
		Context: s.catalog.ContextOrDefault(req.Publication),
		Phase:   phase.next(),
	}
}

func span(stories []database.Story) (time.Time, time.Time) {
	var start, end time.Time
	for i, st := range stories {
		if i == 0 || st.Timestamp.Before(start) {
			start = st.Timestamp
		}
		if i == 0 || st.Timestamp.After(end) {
			end = st.Timestamp
		}
	}
	return start, end
}

func displayPublication(p string) string {
	if p == "" {
		return "news"
	}
	return p
}

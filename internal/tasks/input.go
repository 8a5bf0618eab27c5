package tasks

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/rs/zerolog"

	"cjw/internal/storage"
)

// Parsed is what quick-entry text yields before the user edits it.
type Parsed struct {
	Content       string
	DueDate       *string
	ScheduledTime *string
	Duration      *int
	Important     bool
	Urgent        bool
}

// Overrides are explicit form values. A non-nil field always wins over
// the parsed value.
type Overrides struct {
	Content       *string
	Status        *storage.TaskStatus
	DueDate       *string
	ScheduledTime *string
	Duration      *int
	Important     *bool
	Urgent        *bool
}

var (
	bangRe     = regexp.MustCompile(`(^|\s)(!{1,2})(\s|$)`)
	keywordRe  = regexp.MustCompile(`(?i)(^|\s)#?(important|urgent)\b`)
	durationRe = regexp.MustCompile(`(?i)(^|\s)(?:for\s+)?(?:(\d+)h(?:(\d+)m)?|(\d+)m(?:in)?)\b`)
	clockRe    = regexp.MustCompile(`(?i)\d{1,2}:\d{2}|\d{1,2}\s*(?:am|pm|a\.m\.|p\.m\.)|\bnoon\b|\bmidnight\b`)
	danglingRe = regexp.MustCompile(`(?i)\s+(?:at|on|by|due)$`)
	leadInRe   = regexp.MustCompile(`(?i)(?:^|\s+)in$`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// InputService turns free text like "buy milk tomorrow 5pm !" into task fields.
type InputService struct {
	w   *when.Parser
	log zerolog.Logger
}

func NewInputService(log zerolog.Logger) *InputService {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &InputService{w: w, log: log}
}

// Parse extracts markers, a duration and a date phrase from raw, relative to now.
// Matched phrases are removed from the returned content.
func (s *InputService) Parse(raw string, now time.Time) Parsed {
	var p Parsed
	text := raw

	for _, m := range bangRe.FindAllStringSubmatch(text, -1) {
		p.Important = true
		if m[2] == "!!" {
			p.Urgent = true
		}
	}
	text = bangRe.ReplaceAllString(text, " ")

	for _, m := range keywordRe.FindAllStringSubmatch(text, -1) {
		switch strings.ToLower(m[2]) {
		case "important":
			p.Important = true
		case "urgent":
			p.Urgent = true
		}
	}
	text = keywordRe.ReplaceAllString(text, " ")

	if m := durationRe.FindStringSubmatchIndex(text); m != nil {
		if d := durationMinutes(text, m); d > 0 {
			p.Duration = &d
		}
		before := leadInRe.ReplaceAllString(strings.TrimSpace(text[:m[0]]), "")
		text = before + " " + text[m[1]:]
	}

	text = spaceRe.ReplaceAllString(strings.TrimSpace(text), " ")

	r, err := s.w.Parse(text, now)
	if err != nil {
		s.log.Debug().Err(err).Str("text", text).Msg("date parse failed")
	}
	if err == nil && r != nil && r.Index >= 0 && r.Index+len(r.Text) <= len(text) {
		date := r.Time.Format(storage.DateLayout)
		p.DueDate = &date
		if hasClock(r.Text) {
			clock := r.Time.Format(storage.TimeLayout)
			p.ScheduledTime = &clock
		}
		before := danglingRe.ReplaceAllString(strings.TrimSpace(text[:r.Index]), "")
		text = before + " " + text[r.Index+len(r.Text):]
	}

	p.Content = spaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	return p
}

func durationMinutes(text string, m []int) int {
	group := func(i int) int {
		if m[2*i] < 0 {
			return 0
		}
		n, _ := strconv.Atoi(text[m[2*i]:m[2*i+1]])
		return n
	}
	return group(2)*60 + group(3) + group(4)
}

func hasClock(phrase string) bool {
	return clockRe.MatchString(phrase)
}

// BuildCreateInput merges overrides over parsed values. Fields set in
// neither stay empty and take the storage defaults.
func BuildCreateInput(p Parsed, o Overrides) storage.TaskInput {
	in := storage.TaskInput{
		Content:       p.Content,
		DueDate:       p.DueDate,
		ScheduledTime: p.ScheduledTime,
		Important:     p.Important,
		Urgent:        p.Urgent,
	}
	if p.Duration != nil {
		in.Duration = *p.Duration
	}

	if o.Content != nil {
		in.Content = *o.Content
	}
	if o.Status != nil {
		in.Status = *o.Status
	}
	if o.DueDate != nil {
		in.DueDate = o.DueDate
	}
	if o.ScheduledTime != nil {
		in.ScheduledTime = o.ScheduledTime
	}
	if o.Duration != nil {
		in.Duration = *o.Duration
	}
	if o.Important != nil {
		in.Important = *o.Important
	}
	if o.Urgent != nil {
		in.Urgent = *o.Urgent
	}
	return in
}

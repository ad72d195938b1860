package duty

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/roster"
)

const (
	DefaultHistoryLimit = 200
	DefaultSendTimeout  = 15 * time.Second

	dutyTemplate     = "duty_assigned"
	subjectTimestamp = "02.01.2006 15:04"
	warnNoEmail      = "no email address"
	warnNoMailer     = "email is not configured"
)

// Flags exposes the runtime switches the service reads on every auto draw.
type Flags interface {
	AutomationEnabled(ctx context.Context) (bool, error)
}

// Deps are the collaborators of a Service. Mailer, Metrics, NowFunc and Rand are optional.
type Deps struct {
	Roster      Roster
	Repo        Repository
	Flags       Flags
	Mailer      core.EmailService
	Schedule    Schedule
	Logger      core.Logger
	Metrics     *Metrics
	Site        core.SiteInfo
	SendTimeout time.Duration
	NowFunc     func() time.Time
	Rand        Uniform
}

type Service struct {
	Deps

	// serializes auto draws within the process; the unique auto key covers the rest
	autoMu sync.Mutex
}

func NewService(deps Deps) *Service {
	if deps.NowFunc == nil {
		deps.NowFunc = time.Now
	}
	if deps.Rand == nil {
		deps.Rand = globalUniform{}
	}
	if deps.SendTimeout <= 0 {
		deps.SendTimeout = DefaultSendTimeout
	}
	if deps.Schedule.Location == nil {
		deps.Schedule = NewSchedule(time.UTC)
	}
	return &Service{Deps: deps}
}

func (svc *Service) now() time.Time { return svc.NowFunc().UTC() }

func (svc *Service) noop(source Source, status Status, reason string) DrawResult {
	svc.Metrics.recordDraw(source, status)
	return DrawResult{Status: status, Reason: reason}
}

// DrawAuto runs the scheduled draw. Every refusal is a no-op result, not an error.
func (svc *Service) DrawAuto(ctx context.Context) (DrawResult, error) {
	enabled, err := svc.Flags.AutomationEnabled(ctx)
	if err != nil {
		return DrawResult{}, err
	}
	if !enabled {
		return svc.noop(SourceAuto, StatusAutomationOff, "automatic selection is disabled"), nil
	}

	now := svc.now()
	slot, ok, reason := svc.Schedule.Check(now)
	if !ok {
		return svc.noop(SourceAuto, StatusWrongTime, reason), nil
	}
	key := svc.Schedule.AutoKey(now, slot)

	svc.autoMu.Lock()
	defer svc.autoMu.Unlock()

	exists, err := svc.Repo.HasAutoSelection(ctx, key)
	if err != nil {
		return DrawResult{}, errors.Wrap(err, "checking auto selection")
	}
	if exists {
		return svc.noop(SourceAuto, StatusAlreadyDrawn, "already drawn for "+key), nil
	}

	res, err := svc.draw(ctx, now, SourceAuto, slot, key, true)
	if errors.Is(err, ErrAlreadyDrawn) {
		return svc.noop(SourceAuto, StatusAlreadyDrawn, "already drawn for "+key), nil
	}
	return res, err
}

// DrawManual draws right away among the present people. It does not affect fairness.
func (svc *Service) DrawManual(ctx context.Context, notify bool) (DrawResult, error) {
	return svc.draw(ctx, svc.now(), SourceManual, SlotManual, "", notify)
}

func (svc *Service) draw(ctx context.Context, now time.Time, source Source, slot Slot, autoKey string, notify bool) (DrawResult, error) {
	stats, err := svc.standings(ctx, true, now)
	if err != nil {
		return DrawResult{}, err
	}
	pick, err := Draw(stats, svc.Rand)
	if errors.Is(err, ErrNoEligible) {
		return svc.noop(source, StatusNoEligible, "nobody is present"), nil
	} else if err != nil {
		return DrawResult{}, err
	}

	coffeeTypes, err := svc.Roster.CoffeeTypeIndex(ctx)
	if err != nil {
		return DrawResult{}, err
	}

	sel := Selection{
		ID:         uuid.New().String(),
		PersonID:   pick.Person.ID,
		SelectedAt: now,
		Source:     source,
		Slot:       slot,
		AutoKey:    autoKey,
	}
	ct, hasCoffee := coffeeTypes[pick.Person.DefaultCoffeeTypeID]
	if hasCoffee {
		sel.CoffeeTypeID = ct.ID
	}

	res := DrawResult{Status: StatusDrawn, Person: &pick.Person, Standings: stats}

	// rendered before the insert so the snapshot is written with the row
	msg, err := svc.dutyMessage(pick.Person, sel, ct)
	if err != nil {
		svc.Logger.Error("rendering duty notification", err)
		res.NotifyWarning = "rendering email: " + err.Error()
		msg = nil
	} else if msg != nil {
		sel.EmailSubject = msg.Subject
		sel.EmailBody = msg.TextContent
	}

	sel, err = svc.Repo.CreateSelection(ctx, sel)
	if err != nil {
		if errors.Is(err, ErrAlreadyDrawn) {
			return DrawResult{}, err
		}
		return DrawResult{}, errors.Wrap(err, "recording selection")
	}
	res.Selection = &sel
	svc.Metrics.recordDraw(source, StatusDrawn)
	svc.Logger.Info(fmt.Sprintf("%s selected for coffee duty (%s, %s)", pick.Person.FullName(), source, slot))

	if notify && res.NotifyWarning == "" {
		res.NotifyWarning = svc.notify(ctx, pick.Person, msg)
	}
	return res, nil
}

// dutyMessage renders the duty notification of sel. It is nil when p has no email.
func (svc *Service) dutyMessage(p roster.Person, sel Selection, ct roster.CoffeeType) (*core.EmailMessage, error) {
	if p.Email == "" {
		return nil, nil
	}
	coffee := ""
	if ct.ID != "" {
		coffee = ct.Label()
	}
	msg := &core.EmailMessage{
		To: []mail.Address{{Name: p.FullName(), Address: p.Email}},
		Subject: fmt.Sprintf(
			"Dežurni za kavo (%s) – %s",
			sel.Slot.Label(), sel.SelectedAt.In(svc.Schedule.Location).Format(subjectTimestamp),
		),
		TemplateName: dutyTemplate,
		TemplateData: map[string]interface{}{
			"SlotLabel":  sel.Slot.Label(),
			"PersonName": p.FullName(),
			"CoffeeType": coffee,
		},
	}
	if err := msg.Render(svc.Site); err != nil {
		return nil, err
	}
	return msg, nil
}

// notify sends msg and returns a warning on failure. The send is detached from ctx
// cancellation and bounded by SendTimeout.
func (svc *Service) notify(ctx context.Context, p roster.Person, msg *core.EmailMessage) string {
	if msg == nil {
		return warnNoEmail
	}
	if svc.Mailer == nil {
		return warnNoMailer
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), svc.SendTimeout)
	defer cancel()

	start := time.Now()
	err := svc.Mailer.Send(sendCtx, msg)
	result := "sent"
	if err != nil {
		result = "failed"
	}
	svc.Metrics.recordNotification(svc.Mailer.Backend(), result, time.Since(start).Seconds())

	if err != nil {
		svc.Logger.Warn("sending duty notification", err, p, map[string]interface{}{
			"backend": svc.Mailer.Backend(),
		})
		return "email not sent: " + err.Error()
	}
	return ""
}

// Resend renders the notification of an existing selection again, stores the fresh
// snapshot and sends it.
func (svc *Service) Resend(ctx context.Context, selectionID string) (DrawResult, error) {
	sel, err := svc.Repo.GetSelection(ctx, selectionID)
	if err != nil {
		return DrawResult{}, err
	}
	p, err := svc.Roster.GetPerson(ctx, sel.PersonID)
	if err != nil {
		return DrawResult{}, errors.Wrap(err, "loading selected person")
	}
	coffeeTypes, err := svc.Roster.CoffeeTypeIndex(ctx)
	if err != nil {
		return DrawResult{}, err
	}

	res := DrawResult{Status: StatusResent, Person: &p}
	msg, err := svc.dutyMessage(p, sel, coffeeTypes[sel.CoffeeTypeID])
	if err != nil {
		return DrawResult{}, errors.Wrap(err, "rendering duty notification")
	}
	if msg != nil && (msg.Subject != sel.EmailSubject || msg.TextContent != sel.EmailBody) {
		if err := svc.Repo.UpdateSelectionEmail(ctx, sel.ID, msg.Subject, msg.TextContent); err != nil {
			return DrawResult{}, errors.Wrap(err, "saving email snapshot")
		}
		sel.EmailSubject, sel.EmailBody = msg.Subject, msg.TextContent
	}
	res.Selection = &sel
	res.NotifyWarning = svc.notify(ctx, p, msg)
	return res, nil
}

// Standings returns the fairness statistics of the active (optionally only present) people.
func (svc *Service) Standings(ctx context.Context, presentOnly bool) ([]PersonStats, error) {
	return svc.standings(ctx, presentOnly, svc.now())
}

func (svc *Service) standings(ctx context.Context, presentOnly bool, now time.Time) ([]PersonStats, error) {
	var (
		people  []roster.Person
		history []Selection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		people, err = svc.Roster.Eligible(gctx, presentOnly)
		return err
	})
	g.Go(func() (err error) {
		history, err = svc.Repo.QuerySelections(gctx, SelectionFilter{Source: SourceAuto})
		return errors.Wrap(err, "querying auto selections")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ComputeStats(people, history, now), nil
}

// History lists selections, most recent first.
func (svc *Service) History(ctx context.Context, filter SelectionFilter) ([]HistoryEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultHistoryLimit
	}
	var (
		sels        []Selection
		people      map[string]roster.Person
		coffeeTypes map[string]roster.CoffeeType
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sels, err = svc.Repo.QuerySelections(gctx, filter)
		return errors.Wrap(err, "querying selections")
	})
	g.Go(func() (err error) {
		people, err = svc.peopleIndex(gctx)
		return err
	})
	g.Go(func() (err error) {
		coffeeTypes, err = svc.Roster.CoffeeTypeIndex(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(sels))
	for _, sel := range sels {
		entries = append(entries, historyEntry(sel, people, coffeeTypes))
	}
	return entries, nil
}

func historyEntry(sel Selection, people map[string]roster.Person, coffeeTypes map[string]roster.CoffeeType) HistoryEntry {
	e := HistoryEntry{Selection: sel}
	if p, ok := people[sel.PersonID]; ok {
		e.PersonName = p.FullName()
	}
	if ct, ok := coffeeTypes[sel.CoffeeTypeID]; ok {
		e.CoffeeType = ct.Label()
	}
	return e
}

// peopleIndex maps every person, inactive ones included, by ID.
func (svc *Service) peopleIndex(ctx context.Context) (map[string]roster.Person, error) {
	people, err := svc.Roster.QueryPeople(ctx, &roster.QueryFilter{IncludeInactive: true}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying people")
	}
	idx := make(map[string]roster.Person, len(people))
	for _, p := range people {
		idx[p.ID] = p
	}
	return idx, nil
}

// ResetStats deletes every auto selection; manual ones are kept.
func (svc *Service) ResetStats(ctx context.Context) (int, error) {
	n, err := svc.Repo.DeleteAutoSelections(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "deleting auto selections")
	}
	svc.Logger.Info(fmt.Sprintf("statistics reset: %d auto selections deleted", n))
	return n, nil
}

// Dashboard gathers the overview shown on the home page.
func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		people      map[string]roster.Person
		sels        []Selection
		coffeeTypes map[string]roster.CoffeeType
		enabled     bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		people, err = svc.peopleIndex(gctx)
		return err
	})
	g.Go(func() (err error) {
		sels, err = svc.Repo.QuerySelections(gctx, SelectionFilter{})
		return errors.Wrap(err, "querying selections")
	})
	g.Go(func() (err error) {
		coffeeTypes, err = svc.Roster.CoffeeTypeIndex(gctx)
		return err
	})
	g.Go(func() (err error) {
		enabled, err = svc.Flags.AutomationEnabled(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	now := svc.now()
	d := Dashboard{
		PerDay:            make([]DayCount, 0),
		NextRun:           svc.Schedule.NextRun(now),
		AutomationEnabled: enabled,
	}

	favorites := make(map[string]int)
	for _, p := range people {
		if !p.Active {
			continue
		}
		d.PeopleCount++
		if p.IsPresent {
			d.PresentCount++
		}
		if _, ok := coffeeTypes[p.DefaultCoffeeTypeID]; ok {
			favorites[p.DefaultCoffeeTypeID]++
		}
	}
	if id := topKey(favorites, func(id string) string { return coffeeTypes[id].Name }); id != "" {
		ct := coffeeTypes[id]
		d.FavoriteCoffee = &ct
	}

	counts := make(map[string]int)
	perDay := make(map[string]int)
	for _, sel := range sels {
		counts[sel.PersonID]++
		perDay[sel.SelectedAt.In(svc.Schedule.Location).Format(autoKeyDateLayout)]++
	}
	if id := topKey(counts, func(id string) string { return people[id].FullName() }); id != "" {
		if p, ok := people[id]; ok {
			d.MostActive = &p
			d.MostActiveCount = counts[id]
		}
	}
	if len(sels) > 0 {
		last := historyEntry(sels[0], people, coffeeTypes)
		d.LastSelection = &last
	}

	days := make([]string, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		d.PerDay = append(d.PerDay, DayCount{Date: day, Count: perDay[day]})
	}
	return d, nil
}

// topKey returns the key with the highest count; ties go to the smallest name.
func topKey(counts map[string]int, name func(string) string) string {
	var best string
	for k, n := range counts {
		switch {
		case best == "":
			best = k
		case n > counts[best]:
			best = k
		case n == counts[best] && name(k) < name(best):
			best = k
		}
	}
	return best
}

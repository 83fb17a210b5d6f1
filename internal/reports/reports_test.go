package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"scuttle/internal/statsapi"

	"github.com/bwmarrin/discordgo"
)

type stubApi struct {
	channels  map[string]string
	channelFn func(guildId string) (string, error)
	reports   map[string]statsapi.Report
	reportErr map[string]error
	rosters   map[string][]statsapi.Summoner
	rosterErr map[string]error
	cached    map[statsapi.Puuid]bool
	cacheErr  map[statsapi.Puuid]error
	panicOn   string
}

func (api *stubApi) GetGuildChannel(ctx context.Context, guildId string) (string, error) {
	if api.channelFn != nil {
		return api.channelFn(guildId)
	}
	channelId, ok := api.channels[guildId]
	if !ok {
		return "", fmt.Errorf("guild_channel: %w", statsapi.ErrNotFound)
	}
	return channelId, nil
}

func (api *stubApi) GetPrettyReport(ctx context.Context, guildId string, rangeDays int, queueType string) (statsapi.Report, error) {
	if guildId == api.panicOn {
		panic("boom")
	}
	if err := api.reportErr[guildId]; err != nil {
		return nil, err
	}
	report, ok := api.reports[guildId]
	if !ok {
		return nil, fmt.Errorf("report: %w", statsapi.ErrNotFound)
	}
	return report, nil
}

func (api *stubApi) GetGuildSummoners(ctx context.Context, guildId string) ([]statsapi.Summoner, error) {
	if err := api.rosterErr[guildId]; err != nil {
		return nil, err
	}
	return api.rosters[guildId], nil
}

func (api *stubApi) IsSummonerCached(ctx context.Context, puuid statsapi.Puuid, name string, rangeDays int) (bool, error) {
	if err := api.cacheErr[puuid]; err != nil {
		return false, err
	}
	return api.cached[puuid], nil
}

type sentMessage struct {
	channelId string
	embeds    []*discordgo.MessageEmbed
}

type stubSender struct {
	mu       sync.Mutex
	known    map[string]bool
	failOn   map[string]bool
	messages []sentMessage
}

func (sender *stubSender) ChannelExists(channelId string) bool {
	return sender.known[channelId]
}

func (sender *stubSender) SendEmbeds(ctx context.Context, channelId string, embeds []*discordgo.MessageEmbed) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.failOn[channelId] {
		return errors.New("discord unavailable")
	}
	sender.messages = append(sender.messages, sentMessage{channelId, embeds})
	return nil
}

func (sender *stubSender) sentTo(channelId string) []sentMessage {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	var result []sentMessage
	for _, message := range sender.messages {
		if message.channelId == channelId {
			result = append(result, message)
		}
	}
	return result
}

func alphaApi() *stubApi {
	return &stubApi{
		channels: map[string]string{"alpha": "c-alpha"},
		reports: map[string]statsapi.Report{
			"alpha": {{Metric: "Most Kills", TopValue: "42", TopName: "Ada"}},
		},
		rosters: map[string][]statsapi.Summoner{
			"alpha": {{Name: "Ada", Puuid: "p1"}},
		},
		cached: map[statsapi.Puuid]bool{"p1": true},
	}
}

func TestBatchAlphaDelivered(t *testing.T) {
	api := alphaApi()
	sender := &stubSender{known: map[string]bool{"c-alpha": true}}
	batch := NewBatch(api, sender, BatchOptions{})

	run := batch.Run(context.Background(), []Guild{{ID: "alpha", Name: "Alpha"}})

	if got := run.Results[0].Outcome.Kind; got != DELIVERED {
		t.Fatalf("outcome = %v, want delivered", run.Results[0].Outcome)
	}
	messages := sender.sentTo("c-alpha")
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want generating notice and report", len(messages))
	}
	if messages[0].embeds[0].Title != GeneratingNotice().Title {
		t.Errorf("first message = %q, want generating notice", messages[0].embeds[0].Title)
	}

	embeds := messages[1].embeds
	if len(embeds) != 3 {
		t.Fatalf("report message has %d embeds, want 3", len(embeds))
	}
	if embeds[0].Title != "📊 Alpha's Ranked Solo Queue Report" {
		t.Errorf("report title = %q", embeds[0].Title)
	}
	if len(embeds[0].Fields) != 1 || embeds[0].Fields[0].Name != "Most Kills" || embeds[0].Fields[0].Value != "42 - Ada" {
		t.Errorf("report fields = %+v", embeds[0].Fields)
	}
	if len(embeds[1].Fields) != 1 || embeds[1].Fields[0].Value != "🟢 Ada" {
		t.Errorf("compared fields = %+v", embeds[1].Fields)
	}
	if len(embeds[2].Fields) != 0 || embeds[2].Description != "All summoners are cached." {
		t.Errorf("not compared embed = %+v", embeds[2])
	}
}

func TestBatchBetaNotConfigured(t *testing.T) {
	api := alphaApi()
	sender := &stubSender{known: map[string]bool{"c-alpha": true}}
	batch := NewBatch(api, sender, BatchOptions{})

	run := batch.Run(context.Background(), []Guild{{ID: "beta", Name: "Beta"}, {ID: "alpha", Name: "Alpha"}})

	if got := run.Results[0].Outcome; got != SkippedSilently("channel not configured") {
		t.Errorf("beta outcome = %+v", got)
	}
	if got := run.Results[1].Outcome.Kind; got != DELIVERED {
		t.Errorf("alpha outcome = %v, want delivered", got)
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	for _, message := range sender.messages {
		if message.channelId != "c-alpha" {
			t.Errorf("unexpected message to %s", message.channelId)
		}
	}
}

func TestBatchEmptyChannelIsNotConfigured(t *testing.T) {
	api := alphaApi()
	api.channels["alpha"] = ""
	sender := &stubSender{}

	run := NewBatch(api, sender, BatchOptions{}).Run(context.Background(), []Guild{{ID: "alpha"}})

	if got := run.Results[0].Outcome; got != SkippedSilently("channel not configured") {
		t.Errorf("outcome = %+v", got)
	}
	if len(sender.messages) != 0 {
		t.Errorf("got %d messages, want none", len(sender.messages))
	}
}

func TestBatchTransientChannelFailure(t *testing.T) {
	api := alphaApi()
	api.channelFn = func(guildId string) (string, error) {
		return "", &statsapi.UpstreamError{Operation: "guild_channel", Status: 503}
	}
	sender := &stubSender{known: map[string]bool{"c-alpha": true}}

	run := NewBatch(api, sender, BatchOptions{}).Run(context.Background(), []Guild{{ID: "alpha"}})

	if got := run.Results[0].Outcome; got != SkippedSilently("channel lookup failed") {
		t.Errorf("outcome = %+v", got)
	}
	if len(sender.messages) != 0 {
		t.Errorf("got %d messages, want none", len(sender.messages))
	}
}

func TestBatchUnknownChannel(t *testing.T) {
	api := alphaApi()
	sender := &stubSender{}

	run := NewBatch(api, sender, BatchOptions{}).Run(context.Background(), []Guild{{ID: "alpha"}})

	if got := run.Results[0].Outcome; got != SkippedSilently("channel not found") {
		t.Errorf("outcome = %+v", got)
	}
}

func TestBatchNoDataSendsOneNotice(t *testing.T) {
	api := alphaApi()
	delete(api.reports, "alpha")
	sender := &stubSender{known: map[string]bool{"c-alpha": true}}

	run := NewBatch(api, sender, BatchOptions{}).Run(context.Background(), []Guild{{ID: "alpha"}})

	if got := run.Results[0].Outcome; got != SkippedWithNotice("no report data") {
		t.Fatalf("outcome = %+v", got)
	}
	messages := sender.sentTo("c-alpha")
	var notices int
	for _, message := range messages {
		for _, embed := range message.embeds {
			switch embed.Title {
			case NoDataNotice().Title:
				notices++
			case GeneratingNotice().Title:
			default:
				t.Errorf("unexpected embed %q", embed.Title)
			}
		}
	}
	if notices != 1 {
		t.Errorf("got %d no data notices, want 1", notices)
	}
}

func TestBatchIncompleteReportStillSendsLists(t *testing.T) {
	api := alphaApi()
	api.reports["alpha"] = statsapi.Report{{Metric: "Most Kills", TopName: "Ada"}}
	sender := &stubSender{known: map[string]bool{"c-alpha": true}}

	run := NewBatch(api, sender, BatchOptions{}).Run(context.Background(), []Guild{{ID: "alpha", Name: "Alpha"}})

	if got := run.Results[0].Outcome.Kind; got != DELIVERED {
		t.Fatalf("outcome = %+v, want delivered", run.Results[0].Outcome)
	}
	messages := sender.sentTo("c-alpha")
	if len(messages) != 2 || len(messages[1].embeds) != 3 {
		t.Fatalf("got %d messages, want generating notice and the three report embeds", len(messages))
	}
	embeds := messages[1].embeds
	if len(embeds[0].Fields) != 0 {
		t.Errorf("report embed has %d fields, want 0", len(embeds[0].Fields))
	}
	if embeds[1].Fields[0].Value != "🟢 Ada" {
		t.Errorf("cached list = %q", embeds[1].Fields[0].Value)
	}
}

func TestBatchRosterFailureSendsNoReport(t *testing.T) {
	api := alphaApi()
	api.rosterErr = map[string]error{"alpha": &statsapi.UpstreamError{Operation: "guild_summoners", Status: 500}}
	sender := &stubSender{known: map[string]bool{"c-alpha": true}}

	run := NewBatch(api, sender, BatchOptions{}).Run(context.Background(), []Guild{{ID: "alpha"}})

	if got := run.Results[0].Outcome; got != Failed("roster unavailable") {
		t.Fatalf("outcome = %+v", got)
	}
	if messages := sender.sentTo("c-alpha"); len(messages) != 1 {
		t.Errorf("got %d messages, want only the generating notice", len(messages))
	}
}

func TestBatchFailureIsIsolated(t *testing.T) {
	api := alphaApi()
	api.channels["gamma"] = "c-gamma"
	api.channels["delta"] = "c-delta"
	api.reports["delta"] = api.reports["alpha"]
	api.rosters["delta"] = api.rosters["alpha"]
	api.reportErr = map[string]error{"gamma": &statsapi.UpstreamError{Operation: "report", Status: 500}}
	sender := &stubSender{known: map[string]bool{"c-alpha": true, "c-gamma": true, "c-delta": true}}

	guilds := []Guild{{ID: "alpha"}, {ID: "gamma"}, {ID: "delta"}}
	run := NewBatch(api, sender, BatchOptions{GuildConcurrency: 3}).Run(context.Background(), guilds)

	want := []OutcomeKind{DELIVERED, FAILED, DELIVERED}
	for i, kind := range want {
		if run.Results[i].Guild.ID != guilds[i].ID {
			t.Errorf("result %d is for guild %s, want %s", i, run.Results[i].Guild.ID, guilds[i].ID)
		}
		if run.Results[i].Outcome.Kind != kind {
			t.Errorf("guild %s outcome = %+v, want %v", guilds[i].ID, run.Results[i].Outcome, kind)
		}
	}

	messages := sender.sentTo("c-gamma")
	last := messages[len(messages)-1]
	if last.embeds[0].Title != ErrorNotice().Title {
		t.Errorf("last gamma embed = %q, want error notice", last.embeds[0].Title)
	}
}

func TestBatchRecoversPanic(t *testing.T) {
	api := alphaApi()
	api.channels["gamma"] = "c-gamma"
	api.panicOn = "gamma"
	sender := &stubSender{known: map[string]bool{"c-alpha": true, "c-gamma": true}}

	run := NewBatch(api, sender, BatchOptions{}).Run(context.Background(), []Guild{{ID: "gamma"}, {ID: "alpha"}})

	if got := run.Results[0].Outcome; got != Failed("panic") {
		t.Errorf("gamma outcome = %+v, want panic failure", got)
	}
	if got := run.Results[1].Outcome.Kind; got != DELIVERED {
		t.Errorf("alpha outcome = %v, want delivered", got)
	}
	if run.Count(FAILED) != 1 || run.Count(DELIVERED) != 1 {
		t.Errorf("counts: failed %d delivered %d", run.Count(FAILED), run.Count(DELIVERED))
	}
}

func TestBatchSendFailure(t *testing.T) {
	api := alphaApi()
	sender := &stubSender{known: map[string]bool{"c-alpha": true}, failOn: map[string]bool{"c-alpha": true}}

	run := NewBatch(api, sender, BatchOptions{}).Run(context.Background(), []Guild{{ID: "alpha"}})

	if got := run.Results[0].Outcome; got != Failed("send failed") {
		t.Errorf("outcome = %+v", got)
	}
}

func TestCacheCheckOmitsFailures(t *testing.T) {
	roster := []statsapi.Summoner{
		{Name: "Ada", Puuid: "p1"},
		{Name: "Bo", Puuid: "p2"},
		{Name: "Cy", Puuid: "p3"},
		{Name: "Di", Puuid: "p4"},
		{Name: "Ed", Puuid: "p5"},
	}
	api := &stubApi{
		cached:   map[statsapi.Puuid]bool{"p1": true, "p3": false, "p4": true},
		cacheErr: map[statsapi.Puuid]error{"p2": errors.New("timeout"), "p5": errors.New("timeout")},
	}

	status := NewCacheChecker(api, 2).Check(context.Background(), roster)

	if status.Failed != 2 {
		t.Errorf("failed = %d, want 2", status.Failed)
	}
	if fmt.Sprint(status.Cached) != "[Ada Di]" {
		t.Errorf("cached = %v", status.Cached)
	}
	if fmt.Sprint(status.NotCached) != "[Cy]" {
		t.Errorf("not cached = %v", status.NotCached)
	}
}

func TestCacheCheckEmptyRoster(t *testing.T) {
	status := NewCacheChecker(&stubApi{}, 4).Check(context.Background(), nil)
	if status.Cached == nil || status.NotCached == nil || status.Failed != 0 {
		t.Errorf("status = %+v", status)
	}
	if embed := ComparedEmbed(status.Cached); embed.Description != "No summoners have been cached yet." {
		t.Errorf("compared description = %q", embed.Description)
	}
}

func TestAssemblerDropsIncompleteRows(t *testing.T) {
	api := &stubApi{reports: map[string]statsapi.Report{"g": {
		{Metric: "Most Kills", TopValue: "42", TopName: "Ada"},
		{Metric: "Most Deaths", TopValue: "9"},
		{Metric: "Best KDA", TopName: "Bo"},
		{Metric: "Most Assists", TopValue: "0", TopName: "Cy"},
	}}}

	report, err := NewAssembler(api).Assemble(context.Background(), "g", 7, statsapi.QueueRankedSolo)
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if len(report) != 2 || report[0].Metric != "Most Kills" || report[1].Metric != "Most Assists" {
		t.Errorf("report = %+v", report)
	}
}

func TestAssemblerErrors(t *testing.T) {
	api := &stubApi{
		reports:   map[string]statsapi.Report{"partial": {{Metric: "Most Kills", TopValue: "3"}}},
		reportErr: map[string]error{"down": &statsapi.UpstreamError{Operation: "report", Status: 502}},
	}
	assembler := NewAssembler(api)

	if _, err := assembler.Assemble(context.Background(), "missing", 7, statsapi.QueueRankedSolo); !errors.Is(err, ErrNoData) {
		t.Errorf("missing: error = %v, want ErrNoData", err)
	}
	report, err := assembler.Assemble(context.Background(), "partial", 7, statsapi.QueueRankedSolo)
	if err != nil || len(report) != 0 {
		t.Errorf("partial: got %v, %v, want an empty report", report, err)
	}
	_, err = assembler.Assemble(context.Background(), "down", 7, statsapi.QueueRankedSolo)
	var upstream *statsapi.UpstreamError
	if !errors.Is(err, ErrUpstream) || !errors.As(err, &upstream) {
		t.Errorf("down: error = %v, want ErrUpstream wrapping the cause", err)
	}
	if _, err := assembler.Assemble(context.Background(), "g", 0, statsapi.QueueRankedSolo); !errors.Is(err, ErrUpstream) {
		t.Errorf("zero range: error = %v", err)
	}
}

func TestResolverDistinguishesErrors(t *testing.T) {
	cause := &statsapi.UpstreamError{Operation: "guild_channel", Status: 500}
	resolver := NewChannelResolver(&stubApi{channelFn: func(guildId string) (string, error) {
		switch guildId {
		case "missing":
			return "", fmt.Errorf("guild_channel: %w", statsapi.ErrNotFound)
		case "down":
			return "", cause
		}
		return "c1", nil
	}})

	if channelId, err := resolver.Resolve(context.Background(), "ok"); err != nil || channelId != "c1" {
		t.Errorf("ok: got %q, %v", channelId, err)
	}
	if _, err := resolver.Resolve(context.Background(), "missing"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing: error = %v", err)
	}
	_, err := resolver.Resolve(context.Background(), "down")
	if !errors.Is(err, ErrTransient) || errors.Is(err, ErrNotConfigured) || !errors.Is(err, cause) {
		t.Errorf("down: error = %v", err)
	}
}

func TestReportEmbedKeepsOrder(t *testing.T) {
	summary := Summary{GuildName: "Alpha", RangeDays: 30, Report: statsapi.Report{
		{Metric: "Most Kills", TopValue: "42", TopName: "Ada"},
		{Metric: "Best KDA", TopValue: "3.50", TopName: "Bo"},
	}}
	embed := ReportEmbed(summary)
	if embed.Description != "Report for the past 30 days." {
		t.Errorf("description = %q", embed.Description)
	}
	if len(embed.Fields) != 2 || embed.Fields[1].Name != "Best KDA" || embed.Fields[1].Value != "3.50 - Bo" || !embed.Fields[1].Inline {
		t.Errorf("fields = %+v", embed.Fields)
	}
}

func TestLongRosterFitsDiscordLimits(t *testing.T) {
	names := make([]string, 120)
	for i := range names {
		names[i] = fmt.Sprintf("Summoner Number %03d #EUW", i)
	}
	embed := NotComparedEmbed(names)

	if len(embed.Fields) < 2 {
		t.Fatalf("got %d fields, want the names split over several", len(embed.Fields))
	}
	listed, total := 0, 0
	for _, field := range embed.Fields {
		size := utf8.RuneCountInString(field.Value)
		if size > 1024 {
			t.Errorf("field %q has %d characters", field.Name, size)
		}
		total += size
		listed += strings.Count(field.Value, "🔴 ")
	}
	if total > 2000 {
		t.Errorf("list takes %d characters", total)
	}
	last := embed.Fields[len(embed.Fields)-1].Value
	wantMore := fmt.Sprintf("…and %d more", len(names)-listed)
	if !strings.HasSuffix(last, wantMore) {
		t.Errorf("last field ends with %q, want %q", last[strings.LastIndex(last, "\n")+1:], wantMore)
	}
	if embed.Fields[0].Name != "🔴 Not Cached Summoners" || embed.Fields[1].Name != "🔴 Not Cached Summoners (cont.)" {
		t.Errorf("field names = %q, %q", embed.Fields[0].Name, embed.Fields[1].Name)
	}
}

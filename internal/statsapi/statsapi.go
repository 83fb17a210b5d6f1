package statsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scuttle/internal/common"
	"scuttle/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Routes inside the stats API
const ROUTE_GUILDS = "/guilds"
const ROUTE_GUILD_CHANNEL = "/guilds/channel"
const ROUTE_GUILD_FILTER = "/guilds/filter"
const ROUTE_GUILD_COUNT = "/guilds/count"
const ROUTE_TOPGG_STATS = "/topgg/stats"
const ROUTE_REPORT = "/reports/pretty"
const ROUTE_SUMMONERS = "/summoners"
const ROUTE_GUILD_SUMMONERS = "/summoners/guild/%s"
const ROUTE_SUMMONER_CACHE = "/summoners/cache/%s"
const ROUTE_PUUID = "/riot/puuid"
const ROUTE_STATS = "/stats/pretty/%s"
const ROUTE_HOURS = "/hours/%s"
const ROUTE_RANKINGS = "/rankings/pretty"

// StatsApi is the typed client of the remote statistics service.
// It owns the base url and the auth header, and translates every
// failure into ErrNotFound, ErrBadRequest or *UpstreamError
type StatsApi struct {
	baseUrl string
	proxy   *common.Proxy
}

func NewStatsApi(baseUrl string, apiKey string, timeout time.Duration, restrictions []common.Restriction) (*StatsApi, error) {

	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse stats api url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("stats api url %q must be absolute", baseUrl)
	}

	header := map[string]string{}
	if apiKey != "" {
		header["Authorization"] = "Bearer " + apiKey
	}

	return &StatsApi{
		baseUrl: strings.TrimSuffix(parsed.String(), "/"),
		proxy:   common.NewProxy(header, timeout, restrictions),
	}, nil
}

func (api *StatsApi) GetGuildChannel(ctx context.Context, guildId string) (string, error) {

	var raw struct {
		MainChannelId string `json:"mainChannelId"`
	}
	query := url.Values{"guildId": {guildId}}
	if err := api.get(ctx, "guild_channel", ROUTE_GUILD_CHANNEL, query, &raw); err != nil {
		return "", err
	}
	return raw.MainChannelId, nil
}

func (api *StatsApi) SetGuildChannel(ctx context.Context, guildId string, channelId string) error {

	body := map[string]string{"guildId": guildId, "channelId": channelId}
	return api.send(ctx, "set_guild_channel", http.MethodPost, ROUTE_GUILD_CHANNEL, nil, body, nil)
}

func (api *StatsApi) GetGuild(ctx context.Context, guildId string) (GuildInfo, error) {

	var raw struct {
		Guild *struct {
			Name string `json:"name"`
		} `json:"guild"`
	}
	query := url.Values{"guildId": {guildId}}
	if err := api.get(ctx, "guild_filter", ROUTE_GUILD_FILTER, query, &raw); err != nil {
		return GuildInfo{}, err
	}
	if raw.Guild == nil {
		return GuildInfo{}, fmt.Errorf("guild %s: %w", guildId, ErrNotFound)
	}
	return GuildInfo{Id: guildId, Name: raw.Guild.Name}, nil
}

func (api *StatsApi) AddGuild(ctx context.Context, guildId string, guildName string) error {

	body := map[string]string{"guildId": guildId, "guildName": guildName}
	return api.send(ctx, "add_guild", http.MethodPost, ROUTE_GUILDS, nil, body, nil)
}

func (api *StatsApi) UpdateGuildCount(ctx context.Context, count int) error {

	body := map[string]int{"count": count}
	return api.send(ctx, "guild_count", http.MethodPut, ROUTE_GUILD_COUNT, nil, body, nil)
}

func (api *StatsApi) UpdateTopggStats(ctx context.Context, guildCount int, shardCount int) error {

	body := map[string]int{"guildCount": guildCount, "shardCount": shardCount}
	return api.send(ctx, "topgg_stats", http.MethodPut, ROUTE_TOPGG_STATS, nil, body, nil)
}

// GetPrettyReport returns the comparative report of a guild. Only a 404
// is ErrNotFound, a null or empty report decodes to no rows
func (api *StatsApi) GetPrettyReport(ctx context.Context, guildId string, rangeDays int, queueType string) (Report, error) {

	query := url.Values{
		"guildId":   {guildId},
		"range":     {strconv.Itoa(rangeDays)},
		"queueType": {queueType},
	}
	data, err := api.request(ctx, "report", http.MethodGet, ROUTE_REPORT, query, nil)
	if err != nil {
		return nil, err
	}

	report, err := DecodeReport(data)
	if err != nil {
		return nil, &UpstreamError{Operation: "report", Status: common.OK, Err: err}
	}
	return report, nil
}

// GetGuildSummoners returns the roster of a guild; a guild without
// summoners gives an empty slice
func (api *StatsApi) GetGuildSummoners(ctx context.Context, guildId string) ([]Summoner, error) {

	var summoners []Summoner
	route := fmt.Sprintf(ROUTE_GUILD_SUMMONERS, url.PathEscape(guildId))
	if err := api.get(ctx, "guild_summoners", route, nil, &summoners); err != nil {
		return nil, err
	}
	if summoners == nil {
		summoners = []Summoner{}
	}
	return summoners, nil
}

// IsSummonerCached asks if the service already holds derived stats for
// the summoner. A rangeDays of zero leaves the range to the service
func (api *StatsApi) IsSummonerCached(ctx context.Context, puuid Puuid, name string, rangeDays int) (bool, error) {

	var raw struct {
		IsCached bool `json:"isCached"`
	}
	query := url.Values{"name": {name}}
	if rangeDays > 0 {
		query.Set("range", strconv.Itoa(rangeDays))
	}
	route := fmt.Sprintf(ROUTE_SUMMONER_CACHE, url.PathEscape(string(puuid)))
	if err := api.get(ctx, "summoner_cache", route, query, &raw); err != nil {
		return false, err
	}
	return raw.IsCached, nil
}

func (api *StatsApi) AddSummoner(ctx context.Context, guildId string, riotid RiotId) (bool, error) {

	var raw struct {
		Success bool `json:"success"`
	}
	body := map[string]string{"guildId": guildId, "summonerRiotId": riotid.String()}
	if err := api.send(ctx, "add_summoner", http.MethodPost, ROUTE_SUMMONERS, nil, body, &raw); err != nil {
		return false, err
	}
	return raw.Success, nil
}

func (api *StatsApi) RemoveSummoner(ctx context.Context, guildId string, riotid RiotId) (bool, error) {

	var raw struct {
		Success bool `json:"success"`
	}
	query := url.Values{"guildId": {guildId}, "summonerRiotId": {riotid.String()}}
	if err := api.send(ctx, "remove_summoner", http.MethodDelete, ROUTE_SUMMONERS, query, nil, &raw); err != nil {
		return false, err
	}
	return raw.Success, nil
}

func (api *StatsApi) GetPuuid(ctx context.Context, riotid RiotId) (Puuid, error) {

	var raw struct {
		Puuid Puuid `json:"puuid"`
	}
	query := url.Values{"riotId": {riotid.String()}}
	if err := api.get(ctx, "puuid", ROUTE_PUUID, query, &raw); err != nil {
		return "", err
	}
	if raw.Puuid == "" {
		return "", fmt.Errorf("puuid for %s: %w", riotid, ErrNotFound)
	}
	log.Debug().Msg(fmt.Sprintf("Found puuid %s for riot id %s", raw.Puuid, riotid))
	return raw.Puuid, nil
}

func (api *StatsApi) GetPrettyStats(ctx context.Context, puuid Puuid, rangeDays int, queueType string) ([]Stat, error) {

	query := url.Values{"range": {strconv.Itoa(rangeDays)}, "queueType": {queueType}}
	route := fmt.Sprintf(ROUTE_STATS, url.PathEscape(string(puuid)))
	data, err := api.request(ctx, "stats", http.MethodGet, route, query, nil)
	if err != nil {
		return nil, err
	}

	stats, err := DecodeStats(data)
	if err != nil {
		return nil, &UpstreamError{Operation: "stats", Status: common.OK, Err: err}
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("stats for puuid %s: %w", puuid, ErrNotFound)
	}
	return stats, nil
}

func (api *StatsApi) GetHours(ctx context.Context, puuid Puuid, rangeDays int, queueType string) (Playtime, error) {

	var playtime Playtime
	query := url.Values{"range": {strconv.Itoa(rangeDays)}, "queueType": {queueType}}
	route := fmt.Sprintf(ROUTE_HOURS, url.PathEscape(string(puuid)))
	if err := api.get(ctx, "hours", route, query, &playtime); err != nil {
		return Playtime{}, err
	}
	return playtime, nil
}

// GetPrettyRankings returns the top entries per stat since the start date.
// No rankings at all is reported as ErrNotFound
func (api *StatsApi) GetPrettyRankings(ctx context.Context, guildId string, startDate time.Time, queueType string) ([]Ranking, error) {

	query := url.Values{
		"guildId":   {guildId},
		"startDate": {startDate.Format(time.DateOnly)},
		"queueType": {queueType},
	}
	data, err := api.request(ctx, "rankings", http.MethodGet, ROUTE_RANKINGS, query, nil)
	if err != nil {
		return nil, err
	}

	rankings, err := DecodeRankings(data)
	if err != nil {
		return nil, &UpstreamError{Operation: "rankings", Status: common.OK, Err: err}
	}
	if len(rankings) == 0 {
		return nil, fmt.Errorf("rankings for guild %s: %w", guildId, ErrNotFound)
	}
	return rankings, nil
}

func (api *StatsApi) get(ctx context.Context, operation string, route string, query url.Values, out any) error {
	return api.send(ctx, operation, http.MethodGet, route, query, nil, out)
}

// Perform a request with an optional JSON body and decode the answer into out
func (api *StatsApi) send(ctx context.Context, operation string, method string, route string, query url.Values, body any, out any) error {

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
	}

	data, err := api.request(ctx, operation, method, route, query, payload)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &UpstreamError{Operation: operation, Status: common.OK, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Perform the request through the proxy and translate the status code
func (api *StatsApi) request(ctx context.Context, operation string, method string, route string, query url.Values, payload []byte) (data []byte, err error) {

	start := time.Now()
	defer func() { metrics.ObserveAPIRequest(operation, start, err) }()

	target := api.baseUrl + route
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	// Housekeeping calls give way to the ones a user or a report is waiting for
	vital := route != ROUTE_GUILD_COUNT && route != ROUTE_TOPGG_STATS
	log.Debug().Msg(fmt.Sprintf("Requesting %s %s", method, target))

	status, data, err := api.proxy.Request(ctx, method, target, payload, vital)
	if err != nil {
		return nil, &UpstreamError{Operation: operation, Err: err}
	}

	switch {
	case status >= 200 && status < 300:
		return data, nil
	case status == common.DATA_NOT_FOUND:
		return nil, fmt.Errorf("%s: %w", operation, ErrNotFound)
	case status == common.BAD_REQUEST:
		return nil, fmt.Errorf("%s: %w", operation, ErrBadRequest)
	default:
		return nil, &UpstreamError{Operation: operation, Status: status}
	}
}

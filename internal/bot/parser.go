package bot

import (
	"fmt"
	"strings"

	"scuttle/internal/statsapi"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	PARSEID_OK                     = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_SUBCOMMAND          = iota
	PARSEID_NO_INPUT               = iota
	PARSEID_NOT_A_RIOT_ID          = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_SUBCOMMAND:          "Command `%s` requires a subcommand",
	PARSEID_NO_INPUT:               "Command `%s` requires the option `%s`",
	PARSEID_NOT_A_RIOT_ID:          "Input `%s` is not a riot id",
}

// Option names of the slash commands
const (
	OPTION_SUMMONER_NAME = "summoner_name"
	OPTION_TAG           = "tag"
	OPTION_GUILD_ID      = "guild_id"
)

type ParseResult struct {
	command       string
	subcommand    string
	parseid       int
	errorMessage  string
	riotid        statsapi.RiotId
	targetGuildId string
}

// Parse the command data of an interaction and validate the options each
// command needs
func Parse(data discordgo.ApplicationCommandInteractionData) ParseResult {

	result := ParseResult{command: data.Name, parseid: PARSEID_OK}

	definition, ok := commandDefinitions[data.Name]
	if !ok {
		log.Debug().Msg(fmt.Sprintf("Command %s not recognised", data.Name))
		result.parseid = PARSEID_COMMAND_NOT_RECOGNISED
		result.errorMessage = fmt.Sprintf(errorMessages[result.parseid], data.Name)
		return result
	}

	// Commands without subcommands are done
	if len(definition.Options) == 0 || definition.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return result
	}

	if len(data.Options) == 0 || data.Options[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		result.parseid = PARSEID_NO_SUBCOMMAND
		result.errorMessage = fmt.Sprintf(errorMessages[result.parseid], data.Name)
		return result
	}
	sub := data.Options[0]
	result.subcommand = sub.Name

	options := map[string]string{}
	for _, option := range sub.Options {
		if option.Type == discordgo.ApplicationCommandOptionString {
			options[option.Name] = strings.TrimSpace(option.StringValue())
		}
	}

	noInput := func(option string) ParseResult {
		result.parseid = PARSEID_NO_INPUT
		result.errorMessage = fmt.Sprintf(errorMessages[result.parseid], data.Name+" "+sub.Name, option)
		return result
	}

	switch {
	case data.Name == COMMAND_REPORTS && sub.Name == SUBCOMMAND_ADMIN:
		// /reports admin <guild_id>
		if options[OPTION_GUILD_ID] == "" {
			return noInput(OPTION_GUILD_ID)
		}
		result.targetGuildId = options[OPTION_GUILD_ID]
	case takesRiotId(data.Name, sub.Name):
		// /<command> <subcommand> <summoner_name> <tag>
		if options[OPTION_SUMMONER_NAME] == "" {
			return noInput(OPTION_SUMMONER_NAME)
		}
		riotid, ok := parseRiotId(options[OPTION_SUMMONER_NAME], options[OPTION_TAG])
		if !ok {
			input := strings.TrimSpace(options[OPTION_SUMMONER_NAME] + " " + options[OPTION_TAG])
			result.parseid = PARSEID_NOT_A_RIOT_ID
			result.errorMessage = fmt.Sprintf(errorMessages[result.parseid], input)
			return result
		}
		result.riotid = riotid
	}
	return result
}

func takesRiotId(command string, subcommand string) bool {
	switch command {
	case COMMAND_STATS, COMMAND_HOURS:
		return true
	case COMMAND_SUMMONERS:
		return subcommand == SUBCOMMAND_ADD || subcommand == SUBCOMMAND_REMOVE
	}
	return false
}

// Build a riot id from the name and tag options. Users often paste the
// whole "Name#TAG" in the name option, or prefix the tag with a hashtag
func parseRiotId(name string, tag string) (statsapi.RiotId, bool) {

	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if hashtagPos := strings.Index(name, "#"); hashtagPos != -1 {
		if tag == "" {
			tag = strings.TrimSpace(name[hashtagPos+1:])
		}
		name = name[:hashtagPos]
	}
	name = strings.TrimSpace(name)

	if name == "" || tag == "" || strings.Contains(tag, "#") {
		return statsapi.RiotId{}, false
	}
	return statsapi.RiotId{GameName: name, TagLine: tag}, true
}

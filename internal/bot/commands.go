package bot

import (
	"github.com/bwmarrin/discordgo"
)

const (
	COMMAND_ENABLE    = "enable"
	COMMAND_HELP      = "help"
	COMMAND_SUPPORT   = "support"
	COMMAND_SUMMONERS = "summoners"
	COMMAND_REPORTS   = "reports"
	COMMAND_STATS     = "stats"
	COMMAND_HOURS     = "hours"
	COMMAND_RANKINGS  = "rankings"
)

const (
	SUBCOMMAND_LIST    = "list"
	SUBCOMMAND_ADD     = "add"
	SUBCOMMAND_REMOVE  = "remove"
	SUBCOMMAND_DAILY   = "daily"
	SUBCOMMAND_WEEKLY  = "weekly"
	SUBCOMMAND_MONTHLY = "monthly"
	SUBCOMMAND_ADMIN   = "admin"
)

func riotIdOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        OPTION_SUMMONER_NAME,
			Description: "The name of the summoner",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        OPTION_TAG,
			Description: "Riot Tag",
			Required:    true,
		},
	}
}

func subcommand(name string, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// Commands returns the slash commands of the bot, in registration order
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        COMMAND_ENABLE,
			Description: "Sets the text channel where automatic messages will be sent, such as reports.",
		},
		{
			Name:        COMMAND_HELP,
			Description: "Shows a list of commands.",
		},
		{
			Name:        COMMAND_SUPPORT,
			Description: "Provides the link to join the support server.",
		},
		{
			Name:        COMMAND_SUMMONERS,
			Description: "Commands related to summoners",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand(SUBCOMMAND_LIST, "Displays a list of all summoners in your Guild."),
				subcommand(SUBCOMMAND_ADD, "Adds a summoner to your Guild.", riotIdOptions()...),
				subcommand(SUBCOMMAND_REMOVE, "Removes a summoner from your Guild.", riotIdOptions()...),
			},
		},
		{
			Name:        COMMAND_REPORTS,
			Description: "Commands related to reports",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand(SUBCOMMAND_WEEKLY, "Displays a weekly report comparing the stats of all summoners in your Guild."),
				subcommand(SUBCOMMAND_MONTHLY, "Displays a monthly report comparing the stats of all summoners in your Guild."),
				subcommand(SUBCOMMAND_ADMIN, "This command is only for the bot admin.", &discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OPTION_GUILD_ID,
					Description: "The ID of the guild.",
					Required:    true,
				}),
			},
		},
		{
			Name:        COMMAND_STATS,
			Description: "Commands related to summoner stats",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand(SUBCOMMAND_DAILY, "Displays a summoner's stats for games played in the last 24 hours.", riotIdOptions()...),
				subcommand(SUBCOMMAND_WEEKLY, "Displays a summoner's stats for games played in the last 7 days.", riotIdOptions()...),
				subcommand(SUBCOMMAND_MONTHLY, "Displays a summoner's stats for games played in the last 30 days.", riotIdOptions()...),
			},
		},
		{
			Name:        COMMAND_HOURS,
			Description: "Check how much time a summoner has spent playing League of Legends.",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand(SUBCOMMAND_DAILY, "Displays a summoner's playtime for games played in the last 24 hours.", riotIdOptions()...),
				subcommand(SUBCOMMAND_WEEKLY, "Displays a summoner's playtime for games played in the last 7 days.", riotIdOptions()...),
				subcommand(SUBCOMMAND_MONTHLY, "Displays a summoner's playtime for games played in the last 30 days.", riotIdOptions()...),
			},
		},
		{
			Name:        COMMAND_RANKINGS,
			Description: "Commands related to rankings",
			Options: []*discordgo.ApplicationCommandOption{
				subcommand(SUBCOMMAND_WEEKLY, "Displays weekly rankings for the top 5 summoners."),
				subcommand(SUBCOMMAND_MONTHLY, "Displays monthly rankings for the top 5 summoners."),
			},
		},
	}
}

var commandDefinitions = func() map[string]*discordgo.ApplicationCommand {
	definitions := map[string]*discordgo.ApplicationCommand{}
	for _, command := range Commands() {
		definitions[command.Name] = command
	}
	return definitions
}()

// Every command but /help, /support and /reports admin needs a guild
func guildOnly(command string, subcommand string) bool {
	switch command {
	case COMMAND_HELP, COMMAND_SUPPORT:
		return false
	case COMMAND_REPORTS:
		return subcommand != SUBCOMMAND_ADMIN
	}
	return true
}

// Static answers are sent right away, the rest are deferred while the stats API answers
func deferred(command string) bool {
	return command != COMMAND_HELP && command != COMMAND_SUPPORT
}

// Days covered by each subcommand of a command
func rangeDays(command string, subcommand string) int {
	switch subcommand {
	case SUBCOMMAND_DAILY:
		return 1
	case SUBCOMMAND_WEEKLY:
		return 7
	case SUBCOMMAND_MONTHLY:
		if command == COMMAND_HOURS {
			return 31
		}
		return 30
	}
	return 7
}

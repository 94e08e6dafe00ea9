// Package commands defines the slash commands for both the title
// rotation and the shift configuration, plus their handlers.
package commands

import (
	"github.com/disgoorg/disgo/discord"
)

var Commands = []discord.ApplicationCommandCreate{
	Titles,
	Shift,
	Schedule,
}

package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/Acrellux/vctools-sub001/internal/ui"
)

func BuildButtonRows(rows [][]ui.Button) []discordgo.MessageComponent {
	components := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, button := range row {
			style := discordgo.SecondaryButton
			if button.Danger {
				style = discordgo.DangerButton
			}
			buttons = append(buttons, discordgo.Button{
				Label:    button.Label,
				Style:    style,
				CustomID: button.CustomID,
				Disabled: button.Disabled,
			})
		}
		components = append(components, discordgo.ActionsRow{Components: buttons})
	}
	return components
}

// DisableComponents returns a copy of the rows with every button disabled.
// Expired panels keep their layout but stop reacting. Components decoded
// from the gateway arrive as pointers, locally built ones as values; both
// forms are handled.
func DisableComponents(components []discordgo.MessageComponent) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(components))
	for _, component := range components {
		var row discordgo.ActionsRow
		switch v := component.(type) {
		case discordgo.ActionsRow:
			row = v
		case *discordgo.ActionsRow:
			row = *v
		default:
			out = append(out, component)
			continue
		}

		buttons := make([]discordgo.MessageComponent, 0, len(row.Components))
		for _, inner := range row.Components {
			switch button := inner.(type) {
			case discordgo.Button:
				button.Disabled = true
				buttons = append(buttons, button)
			case *discordgo.Button:
				copied := *button
				copied.Disabled = true
				buttons = append(buttons, copied)
			default:
				buttons = append(buttons, inner)
			}
		}
		out = append(out, discordgo.ActionsRow{Components: buttons})
	}
	return out
}

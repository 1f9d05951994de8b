package presentation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sglre6355/tenisplay/internal/domain"
	"github.com/sglre6355/tenisplay/internal/usecase"
)

const cancelButtonPrefix = "cancel:"

// renderDay builds the embed of a day: its forecast panel and the reservations list.
func renderDay(
	city string,
	view usecase.DayView,
	forecast usecase.ForecastSnapshot,
	applied bool,
	rainThreshold int,
) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Court schedule for %s · %s", view.Date, city),
	}

	switch {
	case !applied:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Weather",
			Value: fmt.Sprintf("Superseded by a newer selection (%s).", forecast.Key.Date),
		})
	case forecast.State == usecase.ForecastStateReady:
		f := forecast.Forecast
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Temperature", Value: fmt.Sprintf("%d°C", f.Temperature), Inline: true},
			&discordgo.MessageEmbedField{Name: "Conditions", Value: f.Description, Inline: true},
			&discordgo.MessageEmbedField{Name: "Rain probability", Value: fmt.Sprintf("%d%%", f.RainProbability), Inline: true},
			&discordgo.MessageEmbedField{Name: "Humidity", Value: fmt.Sprintf("%d%%", f.Humidity), Inline: true},
			&discordgo.MessageEmbedField{Name: "Wind", Value: fmt.Sprintf("%d m/s", f.WindSpeed), Inline: true},
		)
		if f.RainWarning(rainThreshold) {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  "⚠️ Rain warning",
				Value: fmt.Sprintf("There is a %d%% chance of rain on this day!", f.RainProbability),
			})
		}
		if icon := f.IconURL(); icon != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: icon}
		}
	case forecast.State == usecase.ForecastStateLoading:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Weather", Value: "Loading weather information..."})
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Reservations",
		Value: renderReservations(view),
	})

	return embed
}

func renderReservations(view usecase.DayView) string {
	if len(view.Reservations) == 0 {
		return "No reservations for this day."
	}

	lines := make([]string, 0, len(view.Reservations))
	for _, r := range view.Reservations {
		lines = append(lines, fmt.Sprintf("⏰ %s - %s (id %d)", r.TimeSlot, r.CustomerName, r.ID))
	}
	return strings.Join(lines, "\n")
}

// cancelButtons returns one delete button per reservation of the day, five per row.
func cancelButtons(view usecase.DayView) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row discordgo.ActionsRow

	for _, r := range view.Reservations {
		row.Components = append(row.Components, discordgo.Button{
			Label:    fmt.Sprintf("Cancel %s", r.TimeSlot),
			Style:    discordgo.DangerButton,
			CustomID: cancelButtonPrefix + strconv.FormatInt(r.ID, 10),
		})
		if len(row.Components) == 5 {
			rows = append(rows, row)
			row = discordgo.ActionsRow{}
		}
	}
	if len(row.Components) > 0 {
		rows = append(rows, row)
	}

	return rows
}

func parseCancelButton(customID string) (int64, bool) {
	raw, ok := strings.CutPrefix(customID, cancelButtonPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// renderCalendar draws a month grid starting on Sunday. Today is bracketed, reserved days are
// starred and past days are marked with a tilde.
func renderCalendar(year int, month time.Month, today domain.Date, view usecase.DayView) string {
	first := domain.Date{Year: year, Month: month, Day: 1}.In(time.UTC)
	offset := int(first.Weekday())
	days := first.AddDate(0, 1, -1).Day()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", month, year)
	b.WriteString(" Su  Mo  Tu  We  Th  Fr  Sa \n")
	b.WriteString(strings.Repeat("    ", offset))

	for d := 1; d <= days; d++ {
		day := domain.Date{Year: year, Month: month, Day: d}
		switch view.DayStatus(day, today) {
		case domain.DayStatusToday:
			fmt.Fprintf(&b, "[%2d]", d)
		case domain.DayStatusReserved:
			fmt.Fprintf(&b, "*%2d ", d)
		case domain.DayStatusPast:
			fmt.Fprintf(&b, "~%2d ", d)
		default:
			fmt.Fprintf(&b, " %2d ", d)
		}
		if (offset+d)%7 == 0 && d != days {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n[dd] today   *dd reserved   ~dd past")
	return "```\n" + b.String() + "\n```"
}

func cancelMessage(id int64, city string, removed bool) string {
	if !removed {
		return fmt.Sprintf("No reservation %d found in %s. It may already be cancelled or belong to another city.", id, city)
	}
	return fmt.Sprintf("Reservation %d removed.", id)
}

// userMessage maps booking errors to the notice shown to the user.
func userMessage(err error) string {
	var validationErr *domain.ValidationError
	var conflictErr *domain.ConflictError

	switch {
	case errors.As(err, &validationErr):
		switch validationErr.Field {
		case "city":
			return "Please enter a city before booking."
		case "customerName", "timeSlot":
			return "Enter the customer name and pick a time slot."
		}
		return validationErr.Error()
	case errors.As(err, &conflictErr):
		return fmt.Sprintf("The %s slot on %s is already booked.", conflictErr.TimeSlot, conflictErr.Date)
	case errors.Is(err, domain.ErrCityRequired):
		return "No city selected for this channel. Use /city first."
	default:
		return "Something went wrong, please try again."
	}
}

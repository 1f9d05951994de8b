package presentation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sglre6355/tenisplay/internal/domain"
	"github.com/sglre6355/tenisplay/internal/usecase"
)

const invalidDateMessage = "Invalid date format. Please use YYYY-MM-DD (e.g., 2026-03-10)"

// BookingBot wires Discord events to the booking sessions.
type BookingBot struct {
	session  *discordgo.Session
	sessions *usecase.SessionManager
	// rainThreshold is the rain probability, in percent, above which a warning is shown.
	rainThreshold int
}

// NewBookingBot constructs a bot instance with all supporting services wired up.
func NewBookingBot(session *discordgo.Session, sessions *usecase.SessionManager, rainThreshold int) (*BookingBot, error) {
	if session == nil {
		return nil, fmt.Errorf("discord session cannot be nil")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager cannot be nil")
	}

	bot := &BookingBot{
		session:       session,
		sessions:      sessions,
		rainThreshold: rainThreshold,
	}

	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

// Start establishes the connection to Discord.
func (b *BookingBot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	log.Println("Booking bot is running!")
	return nil
}

// Stop drops every booking session and closes the Discord connection.
func (b *BookingBot) Stop() {
	if b.sessions != nil {
		b.sessions.Shutdown()
	}

	if b.session != nil {
		if err := b.session.Close(); err != nil {
			log.Printf("Error closing Discord session: %v", err)
		}
	}
}

func (b *BookingBot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
}

func (b *BookingBot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
	case discordgo.InteractionMessageComponent:
		b.handleCancelButton(s, i)
		return
	default:
		return
	}

	if handler, ok := b.commandHandlers()[i.ApplicationCommandData().Name]; ok {
		handler(s, i)
	}
}

func (b *BookingBot) commandHandlers() map[string]func(*discordgo.Session, *discordgo.InteractionCreate) {
	return map[string]func(*discordgo.Session, *discordgo.InteractionCreate){
		"city":     b.handleCity,
		"day":      b.handleDay,
		"book":     b.handleBook,
		"cancel":   b.handleCancel,
		"calendar": b.handleCalendar,
		"leave":    b.handleLeave,
	}
}

// RegisterCommands recreates the slash commands used by the bot.
func (b *BookingBot) RegisterCommands() error {
	existingCommands, err := b.session.ApplicationCommands(b.session.State.User.ID, "")
	if err != nil {
		log.Printf("Error getting existing commands: %v", err)
	} else {
		for _, cmd := range existingCommands {
			if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, "", cmd.ID); err != nil {
				log.Printf("Error deleting command %s: %v", cmd.Name, err)
			}
		}
	}

	for _, cmd := range commands() {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("failed to create command %s: %w", cmd.Name, err)
		}
	}

	return nil
}

func commands() []*discordgo.ApplicationCommand {
	slotChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(domain.TimeSlots))
	for _, slot := range domain.TimeSlots {
		slotChoices = append(slotChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  string(slot),
			Value: string(slot),
		})
	}

	dateOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "date",
		Description: "Day in YYYY-MM-DD format (defaults to the selected day)",
		Required:    false,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "city",
			Description: "Choose the city whose tennis court you want to book",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "City name",
					Required:    true,
				},
			},
		},
		{
			Name:        "day",
			Description: "Show the reservations and weather of a day",
			Options:     []*discordgo.ApplicationCommandOption{dateOption},
		},
		{
			Name:        "book",
			Description: "Book a time slot of the court",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Customer name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "slot",
					Description: "Time slot",
					Required:    true,
					Choices:     slotChoices,
				},
				dateOption,
			},
		},
		{
			Name:        "cancel",
			Description: "Delete a reservation",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "Reservation id",
					Required:    true,
				},
			},
		},
		{
			Name:        "calendar",
			Description: "Show a month with its reserved days highlighted",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "month",
					Description: "Month in YYYY-MM format (defaults to the selected day's month)",
					Required:    false,
				},
			},
		},
		{
			Name:        "leave",
			Description: "Forget this channel's city; /city is needed again before booking",
		},
	}
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	for _, option := range i.ApplicationCommandData().Options {
		opt := option
		options[opt.Name] = opt
	}
	return options
}

func (b *BookingBot) handleCity(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := optionMap(i)

	city := ""
	if option, ok := options["name"]; ok {
		city = option.StringValue()
	}

	session, token, err := b.sessions.SelectCity(context.Background(), i.ChannelID, city)
	if err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}

	b.showDay(s, i, session, token)
}

func (b *BookingBot) handleDay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, err := b.sessions.Session(i.ChannelID)
	if err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}

	date, err := selectedDate(optionMap(i), session)
	if err != nil {
		b.respondWithError(s, i, invalidDateMessage)
		return
	}

	b.showDay(s, i, session, session.SelectDate(date))
}

// showDay defers the response, waits for the forecast and follows up with the day's embed.
func (b *BookingBot) showDay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	session *usecase.BookingSession,
	token usecase.ForecastToken,
) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		log.Printf("Error deferring interaction: %v", err)
		return
	}

	snapshot, applied := session.RefreshForecast(context.Background(), token)
	view := session.View(token.Key.Date)

	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds:     []*discordgo.MessageEmbed{renderDay(token.Key.City, view, snapshot, applied, b.rainThreshold)},
		Components: cancelButtons(view),
	}); err != nil {
		log.Printf("Error sending followup: %v", err)
	}
}

func (b *BookingBot) handleBook(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, err := b.sessions.Session(i.ChannelID)
	if err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}

	options := optionMap(i)

	date, err := selectedDate(options, session)
	if err != nil {
		b.respondWithError(s, i, invalidDateMessage)
		return
	}

	var name string
	if option, ok := options["name"]; ok {
		name = option.StringValue()
	}
	var slot domain.TimeSlot
	if option, ok := options["slot"]; ok {
		slot = domain.TimeSlot(option.StringValue())
	}

	reservation, err := session.Book(context.Background(), name, date, slot)
	if err != nil {
		log.Printf("Failed to book %s on %s for channel %s: %v", slot, date, i.ChannelID, err)
		b.respondWithError(s, i, userMessage(err))
		return
	}

	b.respond(s, i, fmt.Sprintf(
		"Reserved %s on %s in %s for %s (id %d).",
		reservation.TimeSlot, reservation.Date, reservation.City, reservation.CustomerName, reservation.ID,
	))
}

func (b *BookingBot) handleCancel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, err := b.sessions.Session(i.ChannelID)
	if err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}

	option, ok := optionMap(i)["id"]
	if !ok {
		b.respondWithError(s, i, "Reservation id is required")
		return
	}

	b.cancel(s, i, session, option.IntValue())
}

func (b *BookingBot) handleCancelButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id, ok := parseCancelButton(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	session, err := b.sessions.Session(i.ChannelID)
	if err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}

	b.cancel(s, i, session, id)
}

func (b *BookingBot) cancel(s *discordgo.Session, i *discordgo.InteractionCreate, session *usecase.BookingSession, id int64) {
	removed, err := session.Cancel(context.Background(), id)
	if err != nil {
		log.Printf("Failed to cancel reservation %d for channel %s: %v", id, i.ChannelID, err)
		b.respondWithError(s, i, userMessage(err))
		return
	}

	if !removed {
		b.respondWithError(s, i, cancelMessage(id, session.City(), false))
		return
	}

	b.respond(s, i, cancelMessage(id, session.City(), true))
}

func (b *BookingBot) handleCalendar(s *discordgo.Session, i *discordgo.InteractionCreate) {
	session, err := b.sessions.Session(i.ChannelID)
	if err != nil {
		b.respondWithError(s, i, userMessage(err))
		return
	}

	selected := session.SelectedDate()
	year, month := selected.Year, selected.Month
	if option, ok := optionMap(i)["month"]; ok && option.StringValue() != "" {
		parsed, err := time.Parse("2006-01", option.StringValue())
		if err != nil {
			b.respondWithError(s, i, "Invalid month format. Please use YYYY-MM (e.g., 2026-03)")
			return
		}
		year, month = parsed.Year(), parsed.Month()
	}

	view := session.View(selected)
	b.respond(s, i, renderCalendar(year, month, session.Today(), view))
}

func (b *BookingBot) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.sessions.Remove(i.ChannelID) {
		b.respondWithError(s, i, userMessage(domain.ErrCityRequired))
		return
	}

	b.respond(s, i, "City cleared for this channel. Use /city to start booking again.")
}

func selectedDate(
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
	session *usecase.BookingSession,
) (domain.Date, error) {
	option, ok := options["date"]
	if !ok || option.StringValue() == "" {
		return session.SelectedDate(), nil
	}

	return domain.ParseDate(option.StringValue())
}

func (b *BookingBot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
		},
	}); err != nil {
		log.Printf("Error responding to interaction: %v", err)
	}
}

func (b *BookingBot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		log.Printf("Error responding to interaction: %v", err)
	}
}

package realtime

// Event names are the wire contract the storefront client already
// speaks; changing them breaks deployed frontends.
const (
	EventClientsUpdated    = "clients-updated"
	EventMessageFromClient = "message-from-client"
	EventMessageFromServer = "message-from-server"
)

// NoMessagePlaceholder replaces an empty chat message before fan-out.
const NoMessagePlaceholder = "No-message!!"

// Event is the envelope of every frame the gateway emits.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data"`
}

// ChatMessage is the payload of a message-from-server event.
type ChatMessage struct {
	FullName string `json:"fullname"`
	Message  string `json:"message"`
}

func NewPresenceEvent(connectionIds []string) Event {
	return Event{
		Name:    EventClientsUpdated,
		Payload: connectionIds,
	}
}

func NewChatEvent(fullName string, message string) Event {
	if message == "" {
		message = NoMessagePlaceholder
	}

	return Event{
		Name: EventMessageFromServer,
		Payload: ChatMessage{
			FullName: fullName,
			Message:  message,
		},
	}
}

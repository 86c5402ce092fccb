package model

// Message is a single fetched email, reduced to the fields that end up
// in the archive.
type Message struct {
	// ID is the source UID rendered as a string.
	ID string `json:"id"`

	// ThreadKey is the normalized subject used for grouping.
	ThreadKey string `json:"thread_key"`

	From    string `json:"from"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Thread is the group of messages sharing a thread key within one label.
type Thread struct {
	// ID equals the thread key.
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Subject  string    `json:"subject"`
	Messages []Message `json:"messages"`

	// LastDate is the raw Date header of the most recently appended
	// message.
	LastDate string `json:"last_date"`
}

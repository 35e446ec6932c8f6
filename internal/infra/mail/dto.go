package mail

type MessageEmailData struct {
	Name string
	Text string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

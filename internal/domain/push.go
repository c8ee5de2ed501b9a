package domain

// PushMessage is the provider-neutral content of a mobile push.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushReport counts per-token outcomes of one provider call. Gone lists the
// failed tokens the provider reported as permanently invalid.
type PushReport struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Gone   []string `json:"-"`
}

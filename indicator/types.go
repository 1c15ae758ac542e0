package indicator

// CardInfo describes the card being shown.
type CardInfo struct {
	UID   string
	Name  string
	Cover string // album art path, may be empty
}

func (c *CardInfo) fields() (name, uid, cover string) {
	if c == nil {
		return "", "", ""
	}
	return c.Name, c.UID, c.Cover
}

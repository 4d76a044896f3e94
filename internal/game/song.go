package game

// Song is a catalog entry players draw and guess.
type Song struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Genre      string `json:"genre"`
	Difficulty string `json:"difficulty"`
	Language   string `json:"language"`
}

// TitleHint masks the song title for guessers: letters and digits become
// underscores, spaces and punctuation stay visible so word shapes show.
func (s Song) TitleHint() string {
	hint := []rune(s.Title)
	for i, r := range hint {
		if r != ' ' && r != '-' && r != '\'' {
			hint[i] = '_'
		}
	}
	return string(hint)
}

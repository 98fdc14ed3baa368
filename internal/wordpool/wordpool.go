package wordpool

import (
	"bufio"
	"errors"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/google/uuid"

	"poemboard/internal/domain"
)

// DefaultWords is the pool used when no word list is configured.
// Mostly short words that combine well into lines of poetry.
var DefaultWords = []string{
	// Nature
	"sun", "moon", "sea", "rain", "wind", "storm", "river", "stone",
	"leaf", "bloom", "thunder", "glacier", "meteor", "eclipse", "aurora", "honey",

	// People
	"you", "me", "we", "they", "she", "he", "I", "us",

	// Verbs
	"is", "was", "sing", "dream", "fall", "burn", "drift", "whisper",
	"break", "hold", "run", "glow", "wait", "forget", "remember", "dance",

	// Adjectives
	"soft", "blue", "quiet", "wild", "golden", "broken", "tender", "hollow",
	"bright", "slow", "sweet", "bitter", "neon", "velvet", "ancient", "electric",

	// Things
	"heart", "shadow", "mirror", "lantern", "window", "door", "letter", "song",
	"night", "morning", "summer", "ghost", "crystal", "compass", "anchor", "hourglass",

	// Glue
	"the", "a", "and", "of", "in", "to", "with", "under",
	"over", "like", "but", "or", "my", "your", "ing", "s",
}

// Load reads a line-delimited word list, trimming whitespace and skipping
// blank lines.
func Load(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if w := strings.TrimSpace(scanner.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.New("word list is empty")
	}
	return words, nil
}

// LoadFile loads a word list from path, or returns DefaultWords when path is empty
func LoadFile(path string) ([]string, error) {
	if path == "" {
		return DefaultWords, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

// Sample draws count words from pool, with replacement
func Sample(pool []string, count int) []string {
	if len(pool) == 0 || count <= 0 {
		return nil
	}

	out := make([]string, count)
	for i := range out {
		out[i] = pool[rand.Intn(len(pool))]
	}
	return out
}

// NewWordID returns text followed by a random suffix
func NewWordID(text string) string {
	return text + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewWord creates a word near the middle of the board with a slight tilt
func NewWord(text string) domain.Word {
	return domain.Word{
		ID:       NewWordID(text),
		Text:     text,
		XPercent: 25 + rand.Float64()*50,
		YPercent: 25 + rand.Float64()*50,
		Rotate:   rand.Float64()*6 - 3,
	}
}

// NewWords samples count words from pool and places each on the board
func NewWords(pool []string, count int) domain.Words {
	texts := Sample(pool, count)
	if len(texts) == 0 {
		return nil
	}

	out := make(domain.Words, 0, len(texts))
	for _, text := range texts {
		out = append(out, NewWord(text))
	}
	return out
}

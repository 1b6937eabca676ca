package database

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"dieti-tracker/internal/models"
)

// MaxFuzzyDistance is the largest edit distance accepted by FuzzyMatch.
const MaxFuzzyDistance = 2

const searchScanLimit = 1000

// Normalize lowercases s, strips accents, turns everything that is not a
// letter or digit into a space and collapses runs of spaces.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(stripped) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Levenshtein returns the edit distance between a and b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ra {
		cur := make([]int, len(rb)+1)
		cur[0] = i + 1
		for j, cb := range rb {
			cost := 1
			if ca == cb {
				cost = 0
			}
			cur[j+1] = min(prev[j+1]+1, cur[j]+1, prev[j]+cost)
		}
		prev = cur
	}
	return prev[len(rb)]
}

// FuzzyMatch compares query with the start of text, allowing for two extra
// characters of typos.
func FuzzyMatch(query, text string) bool {
	rt := []rune(text)
	n := len([]rune(query)) + 2
	if n > len(rt) {
		n = len(rt)
	}
	return Levenshtein(query, string(rt[:n])) <= MaxFuzzyDistance
}

// Matches reports whether the normalized description matches the normalized
// query by substring or fuzzy prefix.
func Matches(query, description string) bool {
	return strings.Contains(description, query) || FuzzyMatch(query, description)
}

// RankResults moves results whose description starts with query to the
// front, keeping the original order otherwise.
func RankResults(query string, items []models.NutritionalInfo) {
	sort.SliceStable(items, func(i, j int) bool {
		pi := strings.HasPrefix(Normalize(items[i].Description), query)
		pj := strings.HasPrefix(Normalize(items[j].Description), query)
		return pi && !pj
	})
}

// Search looks the query up in the TACO table and in saved recipes.
func (db *DB) Search(ctx context.Context, query string) ([]models.NutritionalInfo, error) {
	q := Normalize(query)
	if q == "" {
		return []models.NutritionalInfo{}, nil
	}

	var taco, recipes []models.NutritionalInfo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		taco, err = db.scan(gctx, "taco", q)
		return err
	})
	g.Go(func() error {
		var err error
		recipes, err = db.scan(gctx, "recipe", q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := append(taco, recipes...)
	RankResults(q, results)
	return results, nil
}

func (db *DB) scan(ctx context.Context, kind, q string) ([]models.NutritionalInfo, error) {
	coll, descField, itemType := db.taco, "description", models.ItemTaco
	if kind == "recipe" {
		coll, descField, itemType = db.recipes, "name", models.ItemRecipe
	}

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetLimit(searchScanLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s collection: %w", kind, err)
	}
	defer cursor.Close(ctx)

	results := []models.NutritionalInfo{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", kind, err)
		}
		desc, _ := doc[descField].(string)
		if !Matches(q, Normalize(desc)) {
			continue
		}
		item := models.NutritionalInfo{
			ID:          idString(doc["_id"]),
			Description: desc,
			Type:        itemType,
		}
		if itemType == models.ItemRecipe {
			item.Calorias = safeFloat(doc["calorias"])
			item.Proteinas = safeFloat(doc["proteinas"])
			item.Carbo = safeFloat(doc["carbo"])
			item.Gordura = safeFloat(doc["gordura"])
		} else {
			item.Calorias = safeFloat(doc["calorias_kcal"])
			item.Proteinas = safeFloat(doc["proteinas_g"])
			item.Carbo = safeFloat(doc["carbo_g"])
			item.Gordura = safeFloat(doc["gordura_g"])
		}
		results = append(results, item)
	}
	return results, cursor.Err()
}

func idString(v any) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// safeFloat reads numeric fields that the TACO import stored as numbers,
// strings or nulls.
func safeFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(n, ",", ".")), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

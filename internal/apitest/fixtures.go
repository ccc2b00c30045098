package apitest

import (
	"encoding/json"

	"github.com/roach88/storefront/internal/catalog"
)

// fixtureCatalog mixes numeric encodings the way the real service does.
const fixtureCatalog = `[
  {"id": 1, "title": "Dune", "author": "Frank Herbert", "genre": "Science Fiction", "price": "9.99", "rating": 4.6, "published_year": 1965, "image_url": "https://covers.example/dune.jpg"},
  {"id": 2, "title": "Emma", "author": "Jane Austen", "genre": "Classic", "price": 12, "rating": "4.1", "published_year": "1815"},
  {"id": 3, "title": "Neuromancer", "author": "William Gibson", "genre": "Science Fiction", "price": 30, "rating": null, "published_year": 1984},
  {"id": 4, "title": "The Hobbit", "author": "J.R.R. Tolkien", "genre": "Fantasy", "price": "25.00", "rating": 4.8, "published_year": 1937},
  {"id": 5, "title": "Beloved", "author": "Toni Morrison", "genre": null, "price": "", "rating": 4.3, "published_year": null},
  {"id": 6, "title": "Dracula", "author": "Bram Stoker", "genre": "Classic", "price": 7.5, "rating": 3.9, "published_year": 1897}
]`

// DefaultBooks returns the fixture catalog.
func DefaultBooks() []catalog.Book {
	var books []catalog.Book
	if err := json.Unmarshal([]byte(fixtureCatalog), &books); err != nil {
		panic("apitest: bad fixture catalog: " + err.Error())
	}
	return books
}

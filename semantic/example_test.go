package semantic_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/apidiscovery/index"
	"github.com/jonwraymond/apidiscovery/semantic"
)

// wordEmbedder counts a few fixed words; enough to rank a toy corpus.
var wordEmbedder = semantic.EmbedderFunc(func(_ context.Context, texts []string) ([][]float32, error) {
	words := []string{"create", "list", "user", "order"}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		row := make([]float32, len(words))
		for j, w := range words {
			row[j] = float32(strings.Count(strings.ToLower(t), w))
		}
		out[i] = row
	}
	return out, nil
})

func ExampleIndex_Search() {
	ix, err := semantic.New([]index.Endpoint{
		{Method: "GET", Path: "/users", Summary: "List users"},
		{Method: "POST", Path: "/users", Summary: "Create a user"},
		{Method: "GET", Path: "/orders", Summary: "List orders"},
	}, semantic.Options{Model: semantic.StaticModel(wordEmbedder)})
	if err != nil {
		panic(err)
	}

	matches, err := ix.Search(context.Background(), "create a user", 1, 0.3)
	if err != nil {
		panic(err)
	}
	for _, m := range matches {
		fmt.Println(m.Endpoint.Key())
	}
	fmt.Println(ix.State())
	// Output:
	// POST /users
	// ready
}

func ExampleSearchText() {
	fmt.Println(semantic.SearchText(index.Endpoint{
		Method:      "GET",
		Path:        "/pets/{id}",
		Summary:     "Get a pet",
		OperationID: "getPet",
		Tags:        []string{"pets"},
	}))
	// Output:
	// GET /pets/{id} Get a pet getPet pets
}

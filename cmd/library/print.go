package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
	"github.com/raparthisrichethan-png/library-lending-go/lending/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// runOperation opens the configured store, runs one engine operation, and
// prints either its result or a short error. Operation errors never panic
// or crash; they exit with a non-zero status after printing.
func runOperation(fn func(ctx context.Context, service *engine.Service) error) {
	ctx := context.Background()

	service, closeStore, openErr := openService(ctx)
	if openErr != nil {
		fmt.Printf("Error: %v\n", openErr)
		os.Exit(1)
	}

	opErr := fn(ctx, service)
	closeStore()

	if opErr != nil {
		fmt.Printf("Error: %v\n", opErr)
		os.Exit(1)
	}
}

func parseID(what string, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}

	return id, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func printMember(m lending.Member) {
	fmt.Printf("[%d] %s <%s> (joined %s)\n", m.ID, m.Name, m.Email, m.JoinedAt.Format("2006-01-02"))
}

func printBook(b lending.Book) {
	fmt.Printf("[%d] %s by %s (%s) | stock: %d\n", b.ID, b.Title, b.Author, b.Category, b.Stock)
}

func printLoan(r lending.LoanRecord) {
	returned := "open"
	if r.ReturnedAt != nil {
		returned = "returned " + r.ReturnedAt.Format(time.RFC3339)
	}

	fmt.Printf("[%d] member %d, book %d, borrowed %s, %s\n",
		r.ID, r.MemberID, r.BookID, r.BorrowedAt.Format(time.RFC3339), returned)
}

// Manual probe for the claims-bridging chain. It runs a minimal fake
// policy-enforcing data service in-process, mints tokens for two
// subjects, and walks the row-isolation and default-deny scenarios
// without needing a live identity provider.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	"github.com/astro-web3/claims-bridge/internal/domain/policy"
	"github.com/astro-web3/claims-bridge/internal/domain/token"
	"github.com/astro-web3/claims-bridge/internal/infra/datastore"
)

const secret = "e2e-downstream-secret"

type fakeService struct {
	verifier *token.Verifier
	rules    *policy.Ruleset
	rows     []datastore.Item
	nextID   int
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	mapClaims, err := f.verifier.Verify(token.Bridged(raw))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	subject := token.Subject(mapClaims, "sub")

	switch r.Method {
	case http.MethodGet:
		visible := make([]datastore.Item, 0)
		for _, row := range f.rows {
			if policy.Evaluate(f.rules, policy.OpSelect, subject, row.Owner) == policy.Permit {
				visible = append(visible, row)
			}
		}
		_ = json.NewEncoder(w).Encode(visible)
	case http.MethodPost:
		var item datastore.Item
		_ = json.NewDecoder(r.Body).Decode(&item)
		if policy.Evaluate(f.rules, policy.OpInsert, subject, item.Owner) != policy.Permit {
			http.Error(w, "new row violates row-level security policy", http.StatusForbidden)
			return
		}
		f.nextID++
		item.ID = strconv.Itoa(f.nextID)
		f.rows = append(f.rows, item)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode([]datastore.Item{item})
	case http.MethodDelete:
		http.Error(w, "no policy permits delete", http.StatusForbidden)
	}
}

func main() {
	verifier, err := token.NewVerifier(secret)
	if err != nil {
		log.Fatalf("verifier: %v", err)
	}

	srv := httptest.NewServer(&fakeService{verifier: verifier, rules: policy.DefaultRuleset()})
	defer srv.Close()

	minter, err := token.NewMinter(secret, time.Minute, "")
	if err != nil {
		log.Fatalf("minter: %v", err)
	}
	extractor := claims.NewExtractor("sub")
	factory := datastore.NewFactory(srv.URL, "", 5*time.Second, 1)

	ctx := context.Background()
	failed := false

	clientFor := func(subject string) *datastore.Client {
		payload, err := extractor.Extract(&claims.Session{Subject: subject})
		if err != nil {
			log.Fatalf("extract: %v", err)
		}
		bridged, _, err := minter.Mint(payload)
		if err != nil {
			log.Fatalf("mint: %v", err)
		}
		return factory.Client(bridged)
	}

	u1 := clientFor("user-1")
	u2 := clientFor("user-2")

	if _, err := u1.InsertItem(ctx, "a", "user-1"); err != nil {
		log.Fatalf("insert as user-1: %v", err)
	}
	if _, err := u2.InsertItem(ctx, "b", "user-2"); err != nil {
		log.Fatalf("insert as user-2: %v", err)
	}

	items, err := u1.ListItems(ctx)
	if err != nil {
		log.Fatalf("list as user-1: %v", err)
	}
	if len(items) == 1 && items[0].Content == "a" {
		fmt.Println("✅ Row isolation: user-1 sees exactly its own row")
	} else {
		fmt.Printf("❌ Row isolation broken: user-1 sees %+v\n", items)
		failed = true
	}

	var denied *datastore.DeniedError
	if _, err := u1.InsertItem(ctx, "x", "user-2"); errors.As(err, &denied) {
		fmt.Println("✅ Foreign-owner insert denied:", denied.Reason)
	} else {
		fmt.Printf("❌ Foreign-owner insert not denied: %v\n", err)
		failed = true
	}

	if err := u1.DeleteItem(ctx, "1"); errors.As(err, &denied) {
		fmt.Println("✅ Delete denied by default:", denied.Reason)
	} else {
		fmt.Printf("❌ Delete not denied: %v\n", err)
		failed = true
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("\nAll bridge checks passed.")
}

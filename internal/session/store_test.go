package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/udara94/interpret-academy-client/internal/domain"
)

func TestStoreGetSetClear(t *testing.T) {
	s := NewStore()

	_, ok := s.Get()
	assert.False(t, ok)

	tok := domain.Token{AccessToken: "AT1", RefreshToken: "RT1", ExpiresAt: time.Now().Add(time.Hour)}
	s.Set(tok)

	got, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, tok, got)

	s.Clear()
	s.Clear() // idempotent
	_, ok = s.Get()
	assert.False(t, ok)
}

func TestStoreConcurrentReadersSeeWholeTokens(t *testing.T) {
	s := NewStore()
	a := domain.Token{AccessToken: "ATA", RefreshToken: "RTA"}
	b := domain.Token{AccessToken: "ATB", RefreshToken: "RTB"}
	s.Set(a)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				s.Set(a)
			} else {
				s.Set(b)
			}
		}
		close(stop)
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				tok, ok := s.Get()
				if !ok {
					continue
				}
				// Either token is fine; a torn mix is not.
				assert.Contains(t, []string{"ATA", "ATB"}, tok.AccessToken)
				if tok.AccessToken == "ATA" {
					assert.Equal(t, "RTA", tok.RefreshToken)
				} else {
					assert.Equal(t, "RTB", tok.RefreshToken)
				}
			}
		}()
	}

	wg.Wait()
}

// Package giveaway keeps CSV-backed bookkeeping of promotional giveaway
// participants and winners.
package giveaway

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/raykavin/signalrun/pkg/logger"
)

const (
	participantsFile = "participants.csv"
	winnersFile      = "winners.csv"
)

// ErrNoParticipants is returned by Draw when nobody has joined.
var ErrNoParticipants = errors.New("no participants registered")

// Participant is one giveaway entry.
type Participant struct {
	TelegramID int64  `csv:"telegram_id"`
	Username   string `csv:"username"`
	JoinedAt   string `csv:"joined_at"`
}

// Winner is a drawn participant.
type Winner struct {
	TelegramID int64  `csv:"telegram_id"`
	Username   string `csv:"username"`
	DrawnAt    string `csv:"drawn_at"`
}

// Service manages the participant and winner files under one directory.
type Service struct {
	mu   sync.Mutex
	dir  string
	rand *rand.Rand
	log  logger.Logger
}

// NewService creates the giveaway bookkeeping service. The directory is
// created when missing.
func NewService(dir string, log logger.Logger) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create giveaway directory: %w", err)
	}
	return &Service{
		dir:  dir,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
		log:  log,
	}, nil
}

// Join registers a participant. Joining twice is idempotent; the second call
// reports false.
func (s *Service) Join(telegramID int64, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := s.readParticipants()
	if err != nil {
		return false, err
	}

	for _, p := range participants {
		if p.TelegramID == telegramID {
			return false, nil
		}
	}

	participants = append(participants, &Participant{
		TelegramID: telegramID,
		Username:   username,
		JoinedAt:   time.Now().UTC().Format(time.RFC3339),
	})

	if err := s.writeCSV(participantsFile, &participants); err != nil {
		return false, err
	}

	s.log.Infof("giveaway entry registered for %s (%d)", username, telegramID)
	return true, nil
}

// Participants lists all registered entries.
func (s *Service) Participants() ([]*Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readParticipants()
}

// Draw picks a random participant, records the win and clears the
// participant list for the next round.
func (s *Service) Draw() (*Winner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants, err := s.readParticipants()
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	picked := participants[s.rand.Intn(len(participants))]
	winner := &Winner{
		TelegramID: picked.TelegramID,
		Username:   picked.Username,
		DrawnAt:    time.Now().UTC().Format(time.RFC3339),
	}

	winners, err := s.readWinners()
	if err != nil {
		return nil, err
	}
	winners = append(winners, winner)

	if err := s.writeCSV(winnersFile, &winners); err != nil {
		return nil, err
	}

	empty := make([]*Participant, 0)
	if err := s.writeCSV(participantsFile, &empty); err != nil {
		return nil, err
	}

	s.log.Infof("giveaway winner drawn: %s (%d)", winner.Username, winner.TelegramID)
	return winner, nil
}

// Winners lists past winners.
func (s *Service) Winners() ([]*Winner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readWinners()
}

func (s *Service) readParticipants() ([]*Participant, error) {
	participants := make([]*Participant, 0)
	if err := s.readCSV(participantsFile, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

func (s *Service) readWinners() ([]*Winner, error) {
	winners := make([]*Winner, 0)
	if err := s.readCSV(winnersFile, &winners); err != nil {
		return nil, err
	}
	return winners, nil
}

// readCSV loads a CSV file into out. A missing file means an empty list.
func (s *Service) readCSV(name string, out any) error {
	f, err := os.Open(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, out); err != nil && err != gocsv.ErrEmptyCSVFile {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *Service) writeCSV(name string, in any) error {
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(in, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

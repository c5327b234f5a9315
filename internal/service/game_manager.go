// service/game_manager.go
package service

import (
	"fmt"
	"log"
	"sync"

	"github.com/benbeisheim/chessrules-backend/internal/model"
	"github.com/google/uuid"
)

type GameManager struct {
	games map[string]*Game
	mu    sync.RWMutex
}

func NewGameManager() *GameManager {
	return &GameManager{
		games: make(map[string]*Game),
	}
}

// CreateGame registers a new game under a fresh uuid.
func (gm *GameManager) CreateGame() (*Game, error) {
	return gm.AddGame(NewGame(uuid.New().String()))
}

func (gm *GameManager) AddGame(game *Game) (*Game, error) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, exists := gm.games[game.ID]; exists {
		return nil, fmt.Errorf("game %s: %w", game.ID, ErrGameExists)
	}
	gm.games[game.ID] = game
	log.Printf("game %s: created", game.ID)
	return game, nil
}

func (gm *GameManager) GetGame(gameID string) (*Game, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	game, exists := gm.games[gameID]
	if !exists {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
	}
	return game, nil
}

func (gm *GameManager) RemoveGame(gameID string) error {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, exists := gm.games[gameID]; !exists {
		return fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
	}
	delete(gm.games, gameID)
	return nil
}

func (gm *GameManager) GetGameState(gameID string) (GameState, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return GameState{}, err
	}
	return game.GetState(), nil
}

func (gm *GameManager) MakeMove(gameID string, move MoveRequest) (model.Ply, error) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return model.Ply{}, err
	}
	return game.MakeMove(move)
}

func (gm *GameManager) RegisterConnection(gameID string, clientID string, conn Subscriber) error {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return err
	}
	return game.RegisterConnection(clientID, conn)
}

func (gm *GameManager) UnregisterConnection(gameID string, clientID string) {
	game, err := gm.GetGame(gameID)
	if err != nil {
		return
	}
	game.UnregisterConnection(clientID)
}

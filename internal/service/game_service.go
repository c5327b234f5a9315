package service

import (
	"fmt"

	"github.com/benbeisheim/chessrules-backend/internal/model"
)

type GameService struct {
	gameManager *GameManager
}

func NewGameService(gameManager *GameManager) *GameService {
	return &GameService{
		gameManager: gameManager,
	}
}

func (gs *GameService) CreateGame() (string, error) {
	game, err := gs.gameManager.CreateGame()
	if err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}
	return game.ID, nil
}

func (gs *GameService) GetGameState(gameID string) (GameState, error) {
	return gs.gameManager.GetGameState(gameID)
}

func (gs *GameService) HandleMove(gameID string, move MoveRequest) (model.Ply, error) {
	return gs.gameManager.MakeMove(gameID, move)
}

func (gs *GameService) LegalMoves(gameID string, from model.Position) ([]model.Move, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	return game.Preview(from)
}

func (gs *GameService) ResetGame(gameID string) (GameState, error) {
	game, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return GameState{}, err
	}
	game.Reset()
	return game.GetState(), nil
}

func (gs *GameService) RegisterConnection(gameID string, clientID string, conn Subscriber) error {
	return gs.gameManager.RegisterConnection(gameID, clientID, conn)
}

func (gs *GameService) UnregisterConnection(gameID string, clientID string) {
	gs.gameManager.UnregisterConnection(gameID, clientID)
}

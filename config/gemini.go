package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var GeminiClient *genai.GenerativeModel

// InitGemini inicializa el cliente del API de Gemini usado por el
// asistente de reportes en lenguaje natural.
func InitGemini() error {
	ctx := context.Background()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("la variable de entorno GEMINI_API_KEY no está definida")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return fmt.Errorf("no se pudo crear el cliente de Gemini: %v", err)
	}
	GeminiClient = client.GenerativeModel("gemini-1.5-flash")
	slog.Info("Cliente de Gemini inicializado correctamente.")

	return nil
}

package app

import (
	"time"

	"github.com/vk/blockflow/internal/blobstore"
	"github.com/vk/blockflow/internal/provider"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/modules/display_image"
	"github.com/vk/blockflow/modules/display_text"
	"github.com/vk/blockflow/modules/generate_image"
	"github.com/vk/blockflow/modules/generate_text"
	"github.com/vk/blockflow/modules/text_to_speech"
)

// Collaborators are the external services units of work call. Nil fields
// are built from the configuration.
type Collaborators struct {
	Text   provider.TextGenerator
	Images provider.ImageGenerator
	Speech provider.SpeechSynthesizer
	Blobs  blobstore.Store
}

// coreModules is the definitive list of all modules that are compiled into
// the blockflow binary.
func coreModules(c Collaborators, signedURLExpiry time.Duration) []registry.Module {
	return []registry.Module{
		&generate_text.Module{Text: c.Text},
		&display_text.Module{},
		&generate_image.Module{Images: c.Images},
		&display_image.Module{},
		&text_to_speech.Module{Speech: c.Speech, Store: c.Blobs, Expiry: signedURLExpiry},
	}
}

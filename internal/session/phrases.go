// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	shelerrors "github.com/shelterops/bedhold/pkg/errors"
)

// hotlinePhrase delivers the crisis hotline number in the caller's
// detected language (spec §4.6 CRISIS_FLOW → PROVIDE_HOTLINE). No
// reservation is created on this path.
func hotlinePhrase(language string) string {
	switch language {
	case "es":
		return "Por favor, comuníquese con la Línea de Prevención del Suicidio al 988. Estamos aquí para ayudarle."
	case "pt":
		return "Por favor, ligue para a Linha de Prevenção ao Suicídio no 988. Estamos aqui para ajudar."
	case "fr":
		return "Veuillez appeler la ligne de prévention du suicide au 988. Nous sommes là pour vous aider."
	default:
		return "Please reach out to the Suicide & Crisis Lifeline at 988. We're here to help."
	}
}

func farewellPhrase(language string) string {
	switch language {
	case "es":
		return "Gracias por llamar. Cuídese."
	case "pt":
		return "Obrigado por ligar. Cuide-se."
	case "fr":
		return "Merci d'avoir appelé. Prenez soin de vous."
	default:
		return "Thank you for calling. Take care."
	}
}

func availabilityPhrase(available int) string {
	if available == 0 {
		return "We don't have any beds open right now, but let's see what we can do. Can I get your name?"
	}
	return fmt.Sprintf("We have %d beds available tonight. Can I get your name?", available)
}

func donationInfoPhrase() string {
	return "Thank you for thinking of us. Donations can be dropped off at the front desk between 9am and 5pm, Monday through Friday."
}

func apologyPhrase(err error) string {
	se := shelerrors.As(err)
	switch se.Kind {
	case shelerrors.KindNoCapacity:
		return "I'm sorry, we don't have any beds available right now. Please call back or try another shelter."
	case shelerrors.KindTimeout:
		return "I'm sorry, our system is taking longer than expected. Please call back shortly."
	default:
		return "I'm sorry, I wasn't able to complete that. Please call back and we'll try again."
	}
}

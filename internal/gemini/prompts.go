package gemini

import (
	"fmt"
	"strings"

	"github.com/cliniquerisimed-lab/jongwane/internal/audit"
	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
)

var topicInstructions = map[catalog.Topic]string{
	catalog.Forces:       "Analyse et valide les points forts du projet. Souligne la pertinence par rapport au contexte camerounais et aux standards internationaux.",
	catalog.Faiblesses:   "Identifie les risques critiques, les lacunes de planification et les menaces à la pérennité. Propose des solutions de mitigation.",
	catalog.Propositions: "Suggère des optimisations stratégiques, budgétaires ou opérationnelles pour maximiser l'impact social et l'efficience.",
}

var documentContexts = map[string]string{
	catalog.SphinxID:        "Le projet concerne un cabinet de conseil stratégique au Cameroun (SPHINX Consulting).",
	catalog.EchoPediatrieID: "Le projet concerne l'intégration de l'échographie clinique aux urgences pédiatriques à Douala (Écho-Pédiatrie).",
}

const customDocumentContext = "Il s'agit d'un document personnalisé soumis par l'utilisateur pour audit."

const systemInstruction = `Tu es un Auditeur Expert International et Consultant Senior au Cameroun.
MISSION : Analyser, critiquer de manière constructive et apporter des solutions concrètes.
STYLE DE RÉDACTION (STYLE VOICEFLOW) :
1. Texte extrêmement aéré et moderne.
2. Paragraphes courts (2-3 phrases maximum).
3. Double saut de ligne obligatoire entre chaque paragraphe.
4. INTERDICTION ABSOLUE d'utiliser des astérisques (*), des dièses (#), des tirets (-) ou des caractères spéciaux pour le formatage.
5. Utilise UNIQUEMENT la balise HTML <strong></strong> pour souligner les points stratégiques.
6. Pas de listes à puces traditionnelles, utilise des paragraphes distincts.
7. Termine obligatoirement par une section intitulée : AVIS ET RECOMMANDATIONS DE L EXPERT.`

const narrationInstruction = "Lis l'intégralité de ce diagnostic d'audit avec une voix calme, posée et extrêmement professionnelle. " +
	"CONSIGNE DE DÉBIT : MAINTIENS UNE VITESSE DE LECTURE STRICTEMENT STABLE, CONSTANTE ET MODÉRÉE DU DÉBUT À LA FIN. " +
	"N'accélère jamais le rythme. Texte à lire : "

func analysisPrompt(req audit.AnalysisRequest) string {
	docContext, ok := documentContexts[req.DocumentID]
	if !ok {
		docContext = customDocumentContext
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\nVoici le texte de la section %s : \"%s\".\n%s", docContext, req.Topic, req.BaseText, topicInstructions[req.Topic])
	if q := strings.TrimSpace(req.Question); q != "" {
		fmt.Fprintf(&sb, "\n\nQUESTION SPÉCIFIQUE DE L'UTILISATEUR : \"%s\"", q)
	}
	return sb.String()
}

func narrationPrompt(text string, maxChars int) string {
	runes := []rune(text)
	if maxChars > 0 && len(runes) > maxChars {
		runes = runes[:maxChars]
	}
	return narrationInstruction + string(runes)
}

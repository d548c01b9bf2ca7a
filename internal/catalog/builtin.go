package catalog

const (
	SphinxID        = "sphinx"
	EchoPediatrieID = "echo-pediatrie"
)

// BuiltinIDs never round-trip through persistence.
var BuiltinIDs = []string{SphinxID, EchoPediatrieID}

func IsBuiltin(id string) bool {
	for _, builtin := range BuiltinIDs {
		if id == builtin {
			return true
		}
	}
	return false
}

// Builtins constructs the seeded documents. Each call returns fresh values.
func Builtins() []Document {
	return []Document{sphinx(), echoPediatrie()}
}

// Directive is a canned steering instruction offered for one section.
type Directive struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

const CSUDirective = "Élabore spécifiquement sur les opportunités de la CSU au Cameroun."

func Directives(documentID string, topic Topic) []Directive {
	if documentID == SphinxID && topic == Propositions {
		return []Directive{{Label: "Stratégie CSU", Text: CSUDirective}}
	}
	return nil
}

func referenceBlock(summary string) string {
	return "<h3>Texte de référence</h3>\n<p>" + summary + "</p>"
}

func sphinx() Document {
	return Document{
		ID:       SphinxID,
		Title:    "Audit Stratégique Sphinx",
		Subtitle: "Cabinet SPHINX Consulting",
		Sections: map[Topic]Section{
			Forces: {
				Title:   "Analyse de l'Identité & Forces",
				Content: referenceBlock("SPHINX Consulting est un cabinet de conseil pluridisciplinaire spécialisé dans l’accompagnement stratégique des institutions publiques, organisations internationales, ONG, associations et structures privées à impact social."),
				RawText: "SPHINX Consulting est un cabinet de conseil pluridisciplinaire spécialisé dans l’accompagnement stratégique des institutions publiques, organisations internationales, ONG, associations et structures privées à impact social. Le cabinet intervient principalement dans les domaines de la santé publique, du développement humain, de l’économie appliquée et de la gouvernance des projets et politiques publiques.",
			},
			Faiblesses: {
				Title:   "Domaines & Évaluation des Risques",
				Content: referenceBlock("Dans un contexte marqué par des ressources limitées, des besoins sociaux croissants et des exigences accrues des partenaires techniques et financiers, SPHINX Consulting se positionne comme un acteur de référence."),
				RawText: "Dans un contexte marqué par des ressources limitées, des besoins sociaux croissants et des exigences accrues des partenaires techniques et financiers, SPHINX Consulting se positionne comme un acteur de référence offrant des solutions adaptées, rigoureuses et orientées vers l’impact.",
			},
			Propositions: {
				Title:   "Propositions & Grille Tarifaire",
				Content: referenceBlock("La tarification du cabinet s'étend de 1 800 000 FCFA à 9 000 000 FCFA selon la complexité des études stratégiques et économiques."),
				RawText: "6. GRILLE TARIFAIRE INDICATIVE : Diagnostic sectoriel (1 800 000 – 6 000 000), Étude économique (3 000 000 – 9 000 000), Audit organisationnel (1 800 000 – 4 800 000). 8. POLITIQUE DE RÉMUNÉRATION : Directeur (Variable), RAF (480 000 – 900 000), Responsable technique (720 000 – 1 200 000).",
			},
		},
		Reference: sphinxReference,
	}
}

func echoPediatrie() Document {
	return Document{
		ID:       EchoPediatrieID,
		Title:    "Audit Projet Écho-Pédiatrie",
		Subtitle: "Association Aide Médicale x Padre Pio",
		Sections: map[Topic]Section{
			Forces: {
				Title:   "Pertinence & Objectifs du Projet",
				Content: referenceBlock("Améliorer durablement la prise en charge des urgences pédiatriques à l’Hôpital Catholique Padre Pio grâce à l’utilisation structurée de l’échographie clinique (POCUS)."),
				RawText: "L’Hôpital Catholique Padre Pio accueille environ 1 000 enfants par mois. Objectif : Améliorer durablement la prise en charge des urgences pédiatriques grâce à l’utilisation structurée de l’échographie clinique au lit du patient (POCUS).",
			},
			Faiblesses: {
				Title:   "Problématique & Risques",
				Content: referenceBlock("Retards diagnostiques dans les urgences vitales. Dépendance à des examens coûteux ou indisponibles et manque de personnel formé à l'échographie pédiatrique."),
				RawText: "Retards diagnostiques, difficultés de triage des nouveau-nés graves, dépendance à des examens coûteux, insuffisance de personnel formé, risque de mortalité évitable.",
			},
			Propositions: {
				Title:   "Budget & Pérennisation",
				Content: referenceBlock("Budget total de 12 000 000 FCFA incluant deux échographes portables et la formation intensive du personnel avec mentorat clinique."),
				RawText: "Budget : 12 000 000 FCFA. Activités : Acquisition matériel (9M), Formation (1.5M), Aménagement (0.5M), Suivi-Évaluation (1M). Pérennisation par quote-part symbolique (tarif social) pour maintenance.",
			},
		},
		Reference: echoPediatrieReference,
	}
}

const sphinxReference = `<header>
<h1>SPHINX CONSULTING</h1>
<p>Cabinet de conseil stratégique, santé publique et développement</p>
</header>
<section>
<h2>1. PRÉSENTATION GÉNÉRALE</h2>
<p>SPHINX Consulting est un cabinet de conseil pluridisciplinaire spécialisé dans l’accompagnement stratégique des institutions publiques, organisations internationales, ONG, associations et structures privées à impact social. Le cabinet intervient principalement dans les domaines de la santé publique, du développement humain, de l’économie appliquée et de la gouvernance des projets et politiques publiques.</p>
<p>Dans un contexte marqué par des ressources limitées, des besoins sociaux croissants et des exigences accrues des partenaires techniques et financiers, SPHINX Consulting se positionne comme un acteur de référence offrant des solutions adaptées, rigoureuses et orientées vers l’impact.</p>
</section>
<section>
<h2>2. VISION, MISSION ET VALEURS</h2>
<h3>Vision</h3>
<p>Contribuer durablement à l’amélioration des systèmes sociaux et sanitaires par un conseil stratégique fondé sur l’expertise, l’innovation et l’équité.</p>
<h3>Mission</h3>
<p>Appuyer les décideurs et les organisations dans la conception, la mise en œuvre et l’évaluation de politiques, programmes et projets à fort impact social, en tenant compte des réalités locales et des standards internationaux.</p>
<h3>Valeurs</h3>
<ul>
<li>Excellence technique et scientifique</li>
<li>Éthique et intégrité professionnelle</li>
<li>Approche contextuelle et participative</li>
<li>Orientation résultats et impact</li>
</ul>
</section>
<section>
<h2>3. DOMAINES D’INTERVENTION ET ACTIVITÉS</h2>
<p><strong>3.1 Conseil en santé publique :</strong> Diagnostics, Politiques sanitaires, CSU.</p>
<p><strong>3.2 Économie de la santé :</strong> Études coût-efficacité, soutenabilité financière.</p>
<p><strong>3.3 Montage et gestion de projets :</strong> Notes conceptuelles, S&amp;E, théories du changement.</p>
<p><strong>3.4 Recherche appliquée :</strong> Études de faisabilité, recherche opérationnelle.</p>
<p><strong>3.5 Appui institutionnel :</strong> Audit organisationnel, décentralisation.</p>
</section>
<section>
<h2>6. GRILLE TARIFAIRE INDICATIVE</h2>
<table>
<tr><th>Prestation</th><th>Tarif (FCFA)</th></tr>
<tr><td>Diagnostic sectoriel / étude stratégique</td><td>1 800 000 – 6 000 000</td></tr>
<tr><td>Étude économique (impact)</td><td>3 000 000 – 9 000 000</td></tr>
<tr><td>Élaboration de projet / note conceptuelle</td><td>900 000 – 2 400 000</td></tr>
<tr><td>Audit organisationnel</td><td>1 800 000 – 4 800 000</td></tr>
</table>
</section>
<section>
<h2>9. CODE D’ÉTHIQUE ET DE CONDUITE</h2>
<ol>
<li>Intégrité : Tolérance zéro corruption.</li>
<li>Confidentialité : Protection stricte des données.</li>
<li>Objectivité : Indépendance des analyses.</li>
<li>Équité : Promotion active de l'approche genre.</li>
</ol>
</section>`

const echoPediatrieReference = `<header>
<p>PROJET DE SANTÉ HOSPITALIER</p>
<h1>Écho-Pédiatrie : Sauver des Vies par l'Innovation</h1>
<p>Porteur : Association Aide Médicale. Partenaire : Hôpital Catholique Padre Pio. Localisation : Douala. Février 2026.</p>
</header>
<section>
<h2>1. PRÉSENTATION DE L’ÉTABLISSEMENT</h2>
<p>L’Hôpital Catholique Padre Pio est une structure sanitaire à forte vocation sociale et humanitaire, accueillant en moyenne 1 000 enfants par mois, répartis entre nouveaux-nés, nourrissons et enfants. Les urgences pédiatriques constituent un service stratégique de l’hôpital.</p>
</section>
<section>
<h2>2. CONTEXTE ET JUSTIFICATION</h2>
<p>Urgences pédiatriques marquées par une charge élevée de pathologies infectieuses et respiratoires. L’échographie clinique au lit du patient (POCUS) représente une solution clé : non invasive, sans irradiation, rapide et peu coûteuse.</p>
</section>
<section>
<h2>3. PROBLÉMATIQUE</h2>
<ul>
<li>Retards diagnostiques dans les urgences vitales.</li>
<li>Difficultés de triage rapide des nouveau-nés graves.</li>
<li>Dépendance à des examens coûteux ou indisponibles.</li>
<li>Insuffisance de personnel formé à l’échographie pédiatrique.</li>
</ul>
</section>
<section>
<h2>7. BUDGET PRÉVISIONNEL ESTIMATIF</h2>
<table>
<tr><th>Poste</th><th>Description</th><th>Montant (FCFA)</th></tr>
<tr><td>Équipements</td><td>02 Échographes portables + Sondes</td><td>9 000 000</td></tr>
<tr><td>Formation</td><td>Experts formateurs (5 jours)</td><td>1 500 000</td></tr>
<tr><td>Aménagement</td><td>Sécurisation et stockage</td><td>500 000</td></tr>
<tr><td>Suivi-Éval</td><td>Collecte de données (1 an)</td><td>1 000 000</td></tr>
<tr><td colspan="2">TOTAL GÉNÉRAL</td><td>12 000 000 FCFA</td></tr>
</table>
</section>
<section>
<h2>9. PÉRENNISATION DU PROJET</h2>
<p>Une quote-part symbolique sur chaque examen (tarif social) sera perçue pour constituer un fonds de maintenance des appareils. La formation sera intégrée au cursus d'accueil de tout nouveau personnel soignant.</p>
</section>`

package chat

import (
	"strings"

	"github.com/safeboy/safeboy/internal/domain/knowledge"
	"github.com/safeboy/safeboy/internal/domain/persona"
	"github.com/safeboy/safeboy/internal/infra/llm"
)

const (
	DefaultPersonaName = "SafeBoy"

	defaultPersonaDescription = "um assistente virtual especializado em segurança do trabalho"

	defaultInstructions = `- Responda sempre em português brasileiro
- Seja preciso e objetivo
- Cite as Normas Regulamentadoras (NRs) aplicáveis sempre que possível
- Mantenha um tom profissional e acessível
- Em caso de risco grave e iminente, oriente a interrupção da atividade`

	whatsappGuidance = `MODO: HISTÓRICO DO WHATSAPP
Você está respondendo com base no histórico de atendimentos realizados pelo WhatsApp. ` +
		`Quando houver respostas anteriores relevantes abaixo, priorize-as para manter a consistência com o que já foi orientado.`

	normalGuidance = `MODO: BASE DE CONHECIMENTO
Você está respondendo com base na base de conhecimento da empresa. ` +
		`Quando houver documentos relevantes abaixo, priorize o conteúdo deles sobre o seu conhecimento geral.`

	// NoWhatsAppContext and NoDocumentContext replace the knowledge block when retrieval found nothing.
	NoWhatsAppContext = "Nenhuma informação específica foi encontrada no histórico do WhatsApp para esta pergunta. Responda com base no seu conhecimento geral sobre segurança do trabalho."
	NoDocumentContext = "Nenhuma informação específica foi encontrada na base de conhecimento para esta pergunta. Responda com base no seu conhecimento geral sobre segurança do trabalho."

	priorityDirective = "IMPORTANTE: quando houver informações da base de conhecimento ou do histórico acima, elas têm prioridade sobre o conhecimento geral. Se não souber a resposta, diga isso claramente."
)

// HistoryEntry is one prior turn supplied by the client.
type HistoryEntry struct {
	Content string `json:"content"`
	IsUser  bool   `json:"isUser"`
}

// PromptInput is everything BuildMessages needs for one turn.
type PromptInput struct {
	Mode    knowledge.Mode
	Records []knowledge.Record
	Persona *persona.Instruction // nil selects the default persona
	History []HistoryEntry
	Message string
}

// BuildMessages returns the system message, then the history in order, then the new
// user message.
func BuildMessages(in PromptInput) []llm.Message {
	msgs := make([]llm.Message, 0, len(in.History)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt(in.Mode, in.Records, in.Persona)})
	for _, h := range in.History {
		role := llm.RoleAssistant
		if h.IsUser {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Content: h.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: in.Message})
}

// SystemPrompt renders persona, mode guidance, knowledge context and the closing directive.
func SystemPrompt(mode knowledge.Mode, records []knowledge.Record, p *persona.Instruction) string {
	var b strings.Builder
	writePersona(&b, p)
	b.WriteString("\n\n")
	if mode == knowledge.ModeWhatsApp {
		b.WriteString(whatsappGuidance)
	} else {
		b.WriteString(normalGuidance)
	}
	b.WriteString("\n\n")
	b.WriteString(KnowledgeContext(mode, records))
	b.WriteString("\n\n")
	b.WriteString(priorityDirective)
	return b.String()
}

func writePersona(b *strings.Builder, p *persona.Instruction) {
	if p == nil {
		b.WriteString("Você é o " + DefaultPersonaName + ", " + defaultPersonaDescription + ".\n\n")
		b.WriteString("INSTRUÇÕES:\n")
		b.WriteString(defaultInstructions)
		return
	}
	b.WriteString("Você é " + p.PersonaName)
	if d := strings.TrimSpace(p.PersonaDescription); d != "" {
		b.WriteString(", " + d)
	}
	b.WriteString(".")
	if s := strings.TrimSpace(p.Instructions); s != "" {
		b.WriteString("\n\nINSTRUÇÕES:\n" + s)
	}
	if s := strings.TrimSpace(p.AdditionalContext); s != "" {
		b.WriteString("\n\nCONTEXTO ADICIONAL:\n" + s)
	}
}

// KnowledgeContext renders records between start/end markers, or the per-mode
// no-information sentence when records is empty.
func KnowledgeContext(mode knowledge.Mode, records []knowledge.Record) string {
	if len(records) == 0 {
		if mode == knowledge.ModeWhatsApp {
			return NoWhatsAppContext
		}
		return NoDocumentContext
	}

	label := "BASE DE CONHECIMENTO"
	if mode == knowledge.ModeWhatsApp {
		label = "HISTÓRICO DO WHATSAPP"
	}

	var b strings.Builder
	b.WriteString("=== INÍCIO " + label + " ===\n")
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		switch rec := r.(type) {
		case *knowledge.RetrievedDocument:
			b.WriteString("Título: " + rec.Title + "\n")
			if rec.Category != "" {
				b.WriteString("Categoria: " + rec.Category + "\n")
			}
			if rec.Summary != "" {
				b.WriteString("Resumo: " + rec.Summary + "\n")
			}
			b.WriteString("Conteúdo: " + rec.Content + "\n")
		case *knowledge.RetrievedMessage:
			b.WriteString("Data: " + rec.CreatedAt.Format("02/01/2006 15:04") + "\n")
			b.WriteString("Resposta: " + rec.Content + "\n")
		}
	}
	b.WriteString("=== FIM " + label + " ===")
	return b.String()
}

package services

import (
	"encoding/json"
	"strings"

	"github.com/sahilchouksey/ai-course-generator/model"
)

const layoutPrompt = `Generate a learning course from the details below. Include the course name, description, category, level, a course banner image prompt, and for every chapter its name, duration and the topics it covers.

The banner image prompt should describe a modern, flat-style 3D digital illustration of the course subject: UI/UX elements such as mockup screens, text blocks, icons and buttons, symbolic elements related to the course like sticky notes and visual aids, a vibrant palette (blues, purples, oranges) and a clean, professional, educational look.

Schema:
{
  "course": {
    "name": "string",
    "description": "string",
    "category": "string",
    "level": "string",
    "includeVideo": "boolean",
    "noOfChapters": "number",
    "bannerImagePrompt": "string",
    "chapters": [
      {
        "chapterName": "string",
        "duration": "string",
        "topics": ["string"]
      }
    ]
  }
}
`

const contentPrompt = `Generate detailed HTML content for each topic of the chapter below, written for students so they can understand every topic in depth. Keep it professional like a textbook, with examples, and questions with answers where they help.

Output ONLY valid JSON in this exact format:
{
  "chapterName": "",
  "topics": [
    {
      "topic": "",
      "content": ""
    }
  ]
}

Rules:
- Do NOT add duration
- Do NOT add extra keys
- Do NOT add explanations
- "content" must be valid HTML wrapped in a single <div> ... </div> block
- Inside the <div>:
  - the main topic title is an underlined heading: <h2><u> ... </u></h2>
  - each subtopic is a subheading: <h3><strong> ... </strong></h3>
  - "Key Features" and similar sections use a <ul> with one <li> per feature
  - use <ul> and <li> for other bullet points
  - <p>, <strong>, <em> and <br> are allowed, keep the structure semantic
`

const jsonOnlyRule = "\nIMPORTANT: Respond with a single JSON object only. No markdown code fences, no text before or after the JSON."

// layoutInput is the part of the request the model sees
type layoutInput struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
	Level        string `json:"level"`
	IncludeVideo bool   `json:"includeVideo"`
	NoOfChapters int    `json:"noOfChapters"`
}

func buildLayoutPrompt(in layoutInput) string {
	payload, _ := json.Marshal(in)

	var b strings.Builder
	b.WriteString(layoutPrompt)
	b.WriteString("\nUser Input: ")
	b.Write(payload)
	b.WriteString("\n")
	b.WriteString(jsonOnlyRule)
	return b.String()
}

func buildChapterPrompt(chapter model.LayoutChapter) string {
	payload, _ := json.Marshal(chapter)

	var b strings.Builder
	b.WriteString(contentPrompt)
	b.WriteString("\nUser Input:\n")
	b.Write(payload)
	b.WriteString("\n")
	b.WriteString(jsonOnlyRule)
	return b.String()
}

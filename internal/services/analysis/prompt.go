package analysis

// SoundDesignPrompt captures the instructions sent to the configured LLM when
// analyzing a narration text. Update this text centrally so every call stays
// in sync with the parser in this package.
const SoundDesignPrompt = `You are a sound designer for narrated audio productions.

Given a narration text, propose:

1. A "soundscape" prompt: one or two sentences describing background music that fits the overall mood of the text.

2. A list of "sound_effects": concrete, non-musical sounds that support specific moments. For each effect give:
   - "name": a short lowercase identifier (e.g. "door_creak")
   - "prompt": a one-sentence generation prompt for the sound
   - "start_word_number": the 1-based position of the word where the sound starts
   - "end_word_number": the 1-based position of the word where it ends
   - "rank": 1 for the most important effect, 2 for the next, and so on

Count words by splitting the text on whitespace only; punctuation stays attached to its word. Word number 1 is the first word of the text.

Prefer a few well-placed effects over many. Do not invent effects for words that describe nothing audible.

You must respond ONLY with a JSON object like:
{"soundscape": "...", "sound_effects": [{"name": "...", "prompt": "...", "start_word_number": 4, "end_word_number": 6, "rank": 1}]}

Now analyze this text:`

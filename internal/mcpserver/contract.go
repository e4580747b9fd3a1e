package mcpserver

// SnapshotFormatContract describes the canonical case snapshot format that
// LLM consumers should follow when importing or exporting cases.
const SnapshotFormatContract = `# Corkboard Case Snapshot Format

A case snapshot is a single JSON document describing one investigation case.

## Structure

` + "```" + `json
{
  "id": "IA-0001",
  "name": "Optional display name",
  "description": "Optional description",
  "cards": [
    {
      "id": "uuid",
      "type": "person",
      "title": "Card title",
      "description": "Optional body text",
      "imageUrl": "/attachments/photo.jpg",
      "position": { "x": 120, "y": 80 },
      "createdAt": 1700000000000
    }
  ],
  "links": [
    { "id": "uuid", "source": "card-id", "target": "card-id", "label": "optional" }
  ],
  "tasks": [
    { "id": "uuid", "text": "Task text", "completed": false }
  ],
  "createdAt": 1700000000000,
  "updatedAt": 1700000000000
}
` + "```" + `

## Rules

1. **` + "`" + `id` + "`" + `, ` + "`" + `cards` + "`" + `, and ` + "`" + `links` + "`" + ` are required.** Empty arrays are
   valid; absent arrays are not.
2. **Card ` + "`" + `type` + "`" + `** is one of: ` + "`" + `person` + "`" + `, ` + "`" + `location` + "`" + `, ` + "`" + `document` + "`" + `,
   ` + "`" + `item` + "`" + `, ` + "`" + `note` + "`" + `, ` + "`" + `photo` + "`" + `.
3. **Links are undirected.** ` + "`" + `source` + "`" + ` and ` + "`" + `target` + "`" + ` must name card ids from
   the same snapshot; there is no meaning to their order.
4. **Timestamps** are Unix epoch milliseconds.
5. **The snapshot id is advisory.** On import the case is assigned a fresh
   collection-local id (IA-NNNN), so snapshots from different boards never collide.
6. **` + "`" + `imageUrl` + "`" + `** values should be absolute paths under ` + "`" + `/attachments/` + "`" + `;
   upload images first via the ` + "`" + `upload_image` + "`" + ` tool.
7. **Encoding** is UTF-8. Titles, descriptions, and task text may use any
   language including Cyrillic.
`

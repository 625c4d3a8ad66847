package driver

const (
	SaveSignatureNodeQuery = `
		MERGE (s:Signature {id: $id})
		SET s.hash = $hash,
			s.course_id = $course_id,
			s.suspicion_score = $suspicion_score
		RETURN s.id AS id
	`

	SaveSignedEdgeQuery = `
		MERGE (st:Student {id: $student_id})
		WITH st
		MATCH (s:Signature {id: $signature_id})
		MERGE (st)-[r:SIGNED]->(s)
		SET r.course_id = $course_id
		RETURN s.id AS id
	`

	SaveResemblesEdgeQuery = `
		MATCH (a:Signature {id: $original_id})
		MATCH (b:Signature {id: $duplicate_id})
		MERGE (a)-[r:RESEMBLES]->(b)
		SET r.similarity = $similarity,
			r.detected_at = $detected_at
		RETURN a.id AS original_id, b.id AS duplicate_id
	`

	// Students linked to each other through resembling signatures.
	GetSharedSignersQuery = `
		MATCH (a:Student)-[:SIGNED]->(:Signature)-[r:RESEMBLES]-(:Signature)<-[:SIGNED]-(b:Student)
		WHERE a.id = $student_id AND b.id <> a.id
		RETURN b.id AS student_id, max(r.similarity) AS similarity
		ORDER BY similarity DESC
	`
)
